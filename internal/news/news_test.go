package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ref = time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Market Wire</title>
<item><title>삼성전자, 4분기 실적 발표</title><link>https://example.com/a</link>
<pubDate>Thu, 05 Feb 2026 09:00:00 GMT</pubDate><description>&lt;p&gt;삼성전자 영업이익 증가&lt;/p&gt;</description></item>
<item><title>Unrelated story</title><link>https://example.com/b</link>
<pubDate>Thu, 05 Feb 2026 10:00:00 GMT</pubDate><description>weather</description></item>
<item><title>삼성전자 old news</title><link>https://example.com/c</link>
<pubDate>Mon, 05 Jan 2026 10:00:00 GMT</pubDate><description>old</description></item>
</channel></rss>`

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello & world", stripHTML("<p>Hello &amp;\n <b>world</b></p>"))
}

func TestExtractSourceName(t *testing.T) {
	assert.Equal(t, "Hankyung", extractSourceName("https://www.hankyung.com/feed/finance"))
	assert.Equal(t, "Yna", extractSourceName("https://www.yna.co.kr/rss/economy.xml"))
	assert.Equal(t, "not a url", extractSourceName("not a url"))
}

func TestParseItemsWindow(t *testing.T) {
	feed, err := gofeed.NewParser().ParseString(rssFixture)
	require.NoError(t, err)

	got := parseItems(feed.Items, "Wire", ref.AddDate(0, 0, -7), ref)
	require.Len(t, got, 2)
	assert.Equal(t, "삼성전자 영업이익 증가", got[0].Content)
	assert.Equal(t, "Wire", got[0].Source)
}

func TestGatherFiltersByTerms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer server.Close()

	c := NewCollector(Options{Feeds: []FeedConfig{{URL: server.URL, Name: "Wire"}}, DaysBack: 7})
	got := c.Gather(context.Background(), "", []string{"삼성전자", "005930"}, ref)
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com/a", got[0].URL)

	all := c.Gather(context.Background(), "", nil, ref)
	assert.Len(t, all, 2)
}

func TestNewsAPISearch(t *testing.T) {
	t.Setenv("STOCKBRIEF_NEWSAPI_TEST", "key-1")
	var gotKey, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotLang = r.URL.Query().Get("language")
		fmt.Fprint(w, `{"status":"ok","articles":[
			{"url":"https://n.example/1","title":"Chip demand rises","publishedAt":"2026-02-05T08:00:00Z","content":"","description":"desc","source":{"name":"Wire"}},
			{"url":"https://removed.com","title":"[Removed]"},
			{"url":"https://n.example/1","title":"Chip demand rises (dup)","publishedAt":"2026-02-04T08:00:00Z"}
		]}`)
	}))
	defer server.Close()

	c := NewNewsAPIClient("STOCKBRIEF_NEWSAPI_TEST", "ko")
	c.baseURL = server.URL
	got, err := c.Search(context.Background(), "삼성전자", ref, 7, 10)
	require.NoError(t, err)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "ko", gotLang)
	require.Len(t, got, 2)
	assert.Equal(t, "desc", got[0].Content)
	assert.Len(t, dedupe(got), 1)
}

func TestNewsAPIError(t *testing.T) {
	t.Setenv("STOCKBRIEF_NEWSAPI_TEST", "key-1")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error","message":"apiKeyInvalid"}`)
	}))
	defer server.Close()

	c := NewNewsAPIClient("STOCKBRIEF_NEWSAPI_TEST", "")
	c.baseURL = server.URL
	_, err := c.Search(context.Background(), "x", ref, 7, 10)
	assert.ErrorContains(t, err, "apiKeyInvalid")
}

func TestFetchContent(t *testing.T) {
	body := strings.Repeat("반도체 업황이 개선되면서 메모리 가격이 상승하고 있다. ", 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusGone)
			return
		}
		fmt.Fprintf(w, "<html><head><title>t</title></head><body><nav>menu</nav><article><h1>Title</h1><p>%s</p><p>%s</p></article></body></html>", body, body)
	}))
	defer server.Close()

	f := NewContentFetcher(time.Second)
	text, err := f.FetchContent(context.Background(), server.URL+"/article")
	require.NoError(t, err)
	assert.Contains(t, text, "메모리 가격")

	_, err = f.FetchContent(context.Background(), server.URL+"/gone")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusGone, httpErr.Code)
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "No recent articles found.", Digest(nil, 100))

	d := Digest([]Article{
		{Title: "A", Source: "Wire", Published: ref, Content: "abcdef"},
		{Title: "B", Source: "Blog"},
	}, 3)
	assert.Contains(t, d, "[1] A (Wire, 2026-02-06)\nabc…\n")
	assert.Contains(t, d, "[2] B (Blog, undated)\n")
}
