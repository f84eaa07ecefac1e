package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogOrder(t *testing.T) {
	require.Len(t, Catalog, 6)
	assert.Equal(t, PriceVolume, Catalog[0])
	assert.Equal(t, MarketIndex, Catalog[5])

	doc := Document()
	require.Len(t, doc, 7)
	assert.Equal(t, InvestmentStrategy, doc[6])
	// Document must not alias the catalog.
	doc[0] = News
	assert.Equal(t, PriceVolume, Catalog[0])
}

func TestCacheEligibility(t *testing.T) {
	for _, id := range Catalog {
		assert.Equal(t, id == MarketIndex, id.CacheEligible(), id)
		assert.Equal(t, id != MarketIndex, id.EntityScoped(), id)
	}
}

func TestResultsCombinedFollowsOrder(t *testing.T) {
	r := NewResults()
	r.Set(News, "news body")
	r.Set(PriceVolume, "price body")

	got := r.Combined(Catalog)
	assert.Equal(t, "\n\n--- PRICE_VOLUME_ANALYSIS ---\n\nprice body\n\n--- NEWS_ANALYSIS ---\n\nnews body", got)

	entries := r.Ordered(Catalog)
	require.Len(t, entries, 2)
	assert.Equal(t, PriceVolume, entries[0].ID)
	assert.Equal(t, News, entries[1].ID)
}
