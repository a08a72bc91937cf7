package exchange

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/fundingtime"
)

var testNow = time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)

// fakeAPI serves canned JSON bodies by path and counts hits.
type fakeAPI struct {
	*httptest.Server
	hits map[string]*atomic.Int32
}

type route struct {
	status int
	body   string
}

func newFakeAPI(t *testing.T, routes map[string]route) *fakeAPI {
	t.Helper()
	api := &fakeAPI{hits: make(map[string]*atomic.Int32, len(routes))}
	mux := http.NewServeMux()
	for path, r := range routes {
		counter := &atomic.Int32{}
		api.hits[path] = counter
		mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
			counter.Add(1)
			w.Header().Set("Content-Type", "application/json")
			status := r.status
			if status == 0 {
				status = http.StatusOK
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(r.body))
		})
	}
	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func (a *fakeAPI) count(path string) int32 {
	if c, ok := a.hits[path]; ok {
		return c.Load()
	}
	return 0
}

func (a *fakeAPI) config() SourceConfig {
	return SourceConfig{Enabled: true, BaseURL: a.URL, Timeout: 2 * time.Second}
}

func testDeps() Deps {
	clock := func() time.Time { return testNow }
	times := fundingtime.New(0, 0)
	times.Now = clock
	return Deps{
		Cache:  memo.New(memo.DefaultConfig()),
		Times:  times,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    clock,
	}
}
