package alert

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/StockBrief/internal/failure"
)

func TestNewSinkSelection(t *testing.T) {
	_, ok := NewSink("", "chat", time.Second).(Nop)
	assert.True(t, ok, "missing token must select Nop")
	_, ok = NewSink("token", "", time.Second).(Nop)
	assert.True(t, ok, "missing chat must select Nop")
	_, ok = NewSink("token", "chat", time.Second).(*Telegram)
	assert.True(t, ok)
}

func TestNopNeverDelivers(t *testing.T) {
	assert.False(t, Nop{}.Send(context.Background(), "hello"))
}

func TestMessageText(t *testing.T) {
	m := Message{
		Severity: Warning,
		Title:    "Price <mismatch>",
		Fields: []Field{
			{Label: "Entity", Value: "Samsung(005930)"},
			{Label: "Error", Value: "a & b"},
		},
	}
	assert.Equal(t, "<b>Price &lt;mismatch&gt;</b>\n\nEntity: Samsung(005930)\nError: a &amp; b", m.Text())
	assert.Equal(t, "<b>only</b>", Message{Title: "only"}.Text())

	m.Fields = m.Fields[:1]
	m.Note = "Analysis aborted."
	assert.Equal(t, "<b>Price &lt;mismatch&gt;</b>\n\nEntity: Samsung(005930)\n\nAnalysis aborted.", m.Text())
}

func newTestTelegram(url string, client *http.Client) *Telegram {
	return &Telegram{botToken: "test-token", chatID: "test-chat", httpClient: client, baseURL: url}
}

func TestTelegramSendSuccess(t *testing.T) {
	var chatID, text, mode string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatID = r.URL.Query().Get("chat_id")
		text = r.URL.Query().Get("text")
		mode = r.URL.Query().Get("parse_mode")
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer server.Close()

	tg := newTestTelegram(server.URL, server.Client())
	assert.True(t, tg.Send(context.Background(), "hello world"))
	assert.Equal(t, "test-chat", chatID)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, "HTML", mode)
}

func TestTelegramServerErrorIsSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"description": "chat not found"})
	}))
	defer server.Close()

	tg := newTestTelegram(server.URL, server.Client())
	err := tg.Deliver(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, failure.KindAlertDelivery, failure.KindOf(err))
	assert.Contains(t, err.Error(), "chat not found")

	assert.False(t, tg.Send(context.Background(), "x"))
}

func TestTelegramUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	tg := newTestTelegram(url, &http.Client{Timeout: time.Second})
	assert.False(t, tg.Send(context.Background(), "x"))
}

// gateSink blocks every Send until released and records what it saw.
type gateSink struct {
	started chan struct{}
	release chan struct{}

	mu   sync.Mutex
	sent []string
}

func newGateSink() *gateSink {
	return &gateSink{started: make(chan struct{}, 10), release: make(chan struct{})}
}

func (g *gateSink) Send(_ context.Context, msg string) bool {
	g.started <- struct{}{}
	<-g.release
	g.mu.Lock()
	g.sent = append(g.sent, msg)
	g.mu.Unlock()
	return true
}

func TestQueueDropsNewestWhenFull(t *testing.T) {
	sink := newGateSink()
	q := NewQueue(sink, 1, time.Second)

	require.True(t, q.Enqueue("first"))
	<-sink.started // worker is now busy with "first"

	assert.True(t, q.Enqueue("second"), "fills the buffer")
	assert.False(t, q.Enqueue("third"), "buffer full, newest dropped")

	close(sink.release)
	require.NoError(t, q.Close(context.Background()))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, sink.sent)
}

func TestQueueRejectsAfterClose(t *testing.T) {
	q := NewQueue(Nop{}, 4, time.Second)
	require.NoError(t, q.Close(context.Background()))
	require.NoError(t, q.Close(context.Background()), "second close is a no-op")
	assert.False(t, q.Send(context.Background(), "late"))
}

func TestQueueCloseHonoursContext(t *testing.T) {
	sink := newGateSink()
	q := NewQueue(sink, 1, time.Second)
	require.True(t, q.Enqueue("stuck"))
	<-sink.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)
	close(sink.release)
}

type fakeStore struct {
	mu        sync.Mutex
	rows      []string
	delivered []bool
	err       error
}

func (f *fakeStore) InsertAlert(severity, entity, section, message string, delivered bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.rows = append(f.rows, severity+"|"+entity+"|"+section+"|"+message)
	f.delivered = append(f.delivered, delivered)
	return int64(len(f.rows)), nil
}

func (f *fakeStore) MarkAlertDelivered(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered[id-1] = true
	return nil
}

func (f *fakeStore) flags() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.delivered...)
}

type staticSink bool

func (s staticSink) Send(context.Context, string) bool { return bool(s) }

func TestRecorderPersists(t *testing.T) {
	store := &fakeStore{}
	r := NewRecorder(staticSink(true), store)

	ok := r.Notify(context.Background(), Message{Severity: Error, Title: "boom", Entity: "Acme(001)", Section: "news_analysis"})
	assert.True(t, ok)
	require.Len(t, store.rows, 1)
	assert.Equal(t, "error|Acme(001)|news_analysis|<b>boom</b>", store.rows[0])
}

func TestRecorderStoreFailureDoesNotEscape(t *testing.T) {
	r := NewRecorder(staticSink(false), &fakeStore{err: errors.New("disk full")})
	assert.False(t, r.Notify(context.Background(), Message{Severity: Warning, Title: "x"}))

	assert.False(t, NewRecorder(staticSink(false), nil).Notify(context.Background(), Message{Title: "y"}))
}

func TestRecorderQueuedNopIsUndelivered(t *testing.T) {
	store := &fakeStore{}
	q := NewQueue(NewSink("", "", time.Second), 4, time.Second)
	r := NewRecorder(q, store)

	assert.False(t, r.Notify(context.Background(), Message{Severity: Critical, Title: "down"}))
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, []bool{false}, store.flags())
}

func TestRecorderQueuedDeliveryIsConfirmed(t *testing.T) {
	store := &fakeStore{}
	q := NewQueue(staticSink(true), 4, time.Second)
	r := NewRecorder(q, store)

	assert.True(t, r.Notify(context.Background(), Message{Severity: Warning, Title: "late"}))
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, []bool{true}, store.flags())
}

func TestRecorderQueuedTransportFailureStaysUndelivered(t *testing.T) {
	store := &fakeStore{}
	q := NewQueue(staticSink(false), 4, time.Second)
	r := NewRecorder(q, store)

	assert.True(t, r.Notify(context.Background(), Message{Severity: Error, Title: "lost"}), "accepted by the queue")
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, []bool{false}, store.flags())
}
