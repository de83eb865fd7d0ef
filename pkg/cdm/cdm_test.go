package cdm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runningman84/nas-job-report/pkg/config"
)

// fakeCluster serves canned payloads keyed by request path and records what it received
type fakeCluster struct {
	mu       sync.Mutex
	payloads map[string]string
	requests []*http.Request
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(context.Background()))
	f.mu.Unlock()

	body, ok := f.payloads[r.URL.Path]
	if !ok {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (f *fakeCluster) last() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestConfig(host string) *config.Config {
	return &config.Config{
		Host:     host,
		Token:    "secret-token",
		Insecure: true,
		Timeout:  5 * time.Second,
	}
}

func newFakeCluster(t *testing.T, payloads map[string]string) (*fakeCluster, *httptest.Server) {
	t.Helper()
	fake := &fakeCluster{payloads: payloads}
	srv := httptest.NewTLSServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{host: "cdm01.example.com", want: "https://cdm01.example.com/api"},
		{host: "10.0.0.5", want: "https://10.0.0.5/api"},
		{host: "https://cdm01.example.com/", want: "https://cdm01.example.com/api"},
		{host: "http://127.0.0.1:8080", want: "http://127.0.0.1:8080/api"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseURL(tt.host))
		})
	}
}

func TestRESTFetcher_BearerAuth(t *testing.T) {
	r := require.New(t)
	fake, srv := newFakeCluster(t, map[string]string{"/api/v1/cluster/me": `{"id":"c1"}`})

	fetcher := NewRESTFetcher(newTestConfig(srv.URL), "1.2.3")
	body, err := fetcher.Get(context.Background(), APIVersionV1, "/cluster/me", nil)
	r.NoError(err)
	r.JSONEq(`{"id":"c1"}`, string(body))

	req := fake.last()
	r.Equal("Bearer secret-token", req.Header.Get("Authorization"))
	r.Equal("nas-job-report/1.2.3", req.Header.Get("User-Agent"))
	r.Equal(http.MethodGet, req.Method)
}

func TestRESTFetcher_BasicAuth(t *testing.T) {
	r := require.New(t)
	fake, srv := newFakeCluster(t, map[string]string{"/api/internal/host/share": `{"data":[]}`})

	cfg := newTestConfig(srv.URL)
	cfg.Token = ""
	cfg.Username = "admin"
	cfg.Password = "p@ss:word"

	_, err := NewRESTFetcher(cfg, "dev").Get(context.Background(), APIVersionInternal, "/host/share", nil)
	r.NoError(err)

	user, pass, ok := fake.last().BasicAuth()
	r.True(ok)
	r.Equal("admin", user)
	r.Equal("p@ss:word", pass)
}

func TestRESTFetcher_QueryParams(t *testing.T) {
	r := require.New(t)
	fake, srv := newFakeCluster(t, map[string]string{"/api/v1/event/latest": `{"data":[]}`})

	params := url.Values{}
	params.Set("limit", "10")
	params.Set("object_ids", "HostShare:::1,Fileset:::a")

	_, err := NewRESTFetcher(newTestConfig(srv.URL), "dev").Get(context.Background(), APIVersionV1, "/event/latest", params)
	r.NoError(err)

	query := fake.last().URL.Query()
	r.Equal("10", query.Get("limit"))
	r.Equal("HostShare:::1,Fileset:::a", query.Get("object_ids"))
}

func TestRESTFetcher_StatusError(t *testing.T) {
	r := require.New(t)
	_, srv := newFakeCluster(t, map[string]string{})

	_, err := NewRESTFetcher(newTestConfig(srv.URL), "dev").Get(context.Background(), APIVersionV1, "/fileset/missing", nil)
	r.Error(err)

	var transportErr *TransportError
	r.True(errors.As(err, &transportErr))
	r.Equal(http.StatusNotFound, transportErr.StatusCode)
	r.Equal("/v1/fileset/missing", transportErr.Path)
	r.Contains(err.Error(), "404")
}

func TestRESTFetcher_NetworkError(t *testing.T) {
	r := require.New(t)
	_, srv := newFakeCluster(t, map[string]string{})
	host := srv.URL
	srv.Close()

	_, err := NewRESTFetcher(newTestConfig(host), "dev").Get(context.Background(), APIVersionV1, "/cluster/me", nil)
	r.Error(err)

	var transportErr *TransportError
	r.True(errors.As(err, &transportErr))
	r.Zero(transportErr.StatusCode)
}

func TestRESTFetcher_VerifiesCertificateWhenSecure(t *testing.T) {
	r := require.New(t)
	_, srv := newFakeCluster(t, map[string]string{"/api/v1/cluster/me": `{}`})

	cfg := newTestConfig(srv.URL)
	cfg.Insecure = false

	_, err := NewRESTFetcher(cfg, "dev").Get(context.Background(), APIVersionV1, "/cluster/me", nil)
	r.Error(err)

	var transportErr *TransportError
	r.True(errors.As(err, &transportErr))
}

func TestRESTFetcher_Timeout(t *testing.T) {
	r := require.New(t)
	release := make(chan struct{})
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-release:
		case <-req.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	cfg := newTestConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond

	_, err := NewRESTFetcher(cfg, "dev").Get(context.Background(), APIVersionV1, "/cluster/me", nil)
	r.Error(err)

	var transportErr *TransportError
	r.True(errors.As(err, &transportErr))
}

func TestManager_Resources(t *testing.T) {
	r := require.New(t)
	seriesPayload := `{"duration":"1 minutes 0 seconds 0 ms","dataTransferred":1024,"throughput":512,` +
		`"eventDetailList":[{"eventName":"Fileset.FilesetMetadataScanFinished","eventInfo":"{\"params\":{\"${scanRate}\":\"12\"}}"}]}`
	fake, srv := newFakeCluster(t, map[string]string{
		"/api/v1/cluster/me":            `{"id":"c1","name":"cdm","timezone":{"timezone":"Europe/Berlin"}}`,
		"/api/internal/host/share":      `{"total":1,"data":[{"id":"HostShare:::1","hostname":"nas01","exportPoint":"/export","shareType":"NFS","status":"REACHABLE"}]}`,
		"/api/v1/fileset":               `{"total":1,"data":[{"id":"Fileset:::a","templateName":"home","configuredSlaDomainId":"sla-1"}]}`,
		"/api/v1/fileset/Fileset:::a":   `{"id":"Fileset:::a","snapshotCount":1,"snapshots":[{"id":"snap","date":"2023-05-01T12:34:56.000Z"}]}`,
		"/api/v1/event/latest":          `{"data":[{"eventSeriesStatus":"Success","latestEvent":{"eventType":"Backup","eventSeriesId":"series-1"}}]}`,
		"/api/v1/event_series/series-1": seriesPayload,
	})

	ctx := context.Background()
	m := NewManager(NewRESTFetcher(newTestConfig(srv.URL), "dev"), logr.Discard())

	cluster, err := m.GetCluster(ctx)
	r.NoError(err)
	r.Equal("Europe/Berlin", cluster.Timezone)

	shares, err := m.ListShares(ctx)
	r.NoError(err)
	r.Len(shares, 1)
	r.Equal("nas01", shares[0].Hostname)

	filesets, err := m.ListFilesets(ctx, "HostShare:::1")
	r.NoError(err)
	r.Equal(1, filesets.Total)
	r.Equal("HostShare:::1", fake.last().URL.Query().Get("share_id"))

	detail, err := m.GetFileset(ctx, "Fileset:::a")
	r.NoError(err)
	r.Equal(1, detail.SnapshotCount)

	summaries, err := m.LatestEvents(ctx, 10, "HostShare:::1", "Fileset:::a")
	r.NoError(err)
	r.Len(summaries, 1)
	r.Equal("series-1", summaries[0].EventSeriesID)
	r.Equal("HostShare:::1,Fileset:::a", fake.last().URL.Query().Get("object_ids"))

	series, err := m.GetEventSeries(ctx, "series-1")
	r.NoError(err)
	r.Equal("series-1", series.ID)
	r.EqualValues(1024, series.DataTransferred)
	r.Len(series.Details, 1)

	r.EqualValues(6, m.Requests())
}

func TestManager_PropagatesTransportError(t *testing.T) {
	r := require.New(t)
	_, srv := newFakeCluster(t, map[string]string{})

	m := NewManager(NewRESTFetcher(newTestConfig(srv.URL), "dev"), logr.Discard())

	_, err := m.ListShares(context.Background())
	r.Error(err)

	var transportErr *TransportError
	r.True(errors.As(err, &transportErr))
	r.Equal(http.StatusNotFound, transportErr.StatusCode)
}

func TestManager_MalformedPayload(t *testing.T) {
	r := require.New(t)
	_, srv := newFakeCluster(t, map[string]string{"/api/v1/cluster/me": `{"timezone":`})

	m := NewManager(NewRESTFetcher(newTestConfig(srv.URL), "dev"), logr.Discard())

	_, err := m.GetCluster(context.Background())
	r.Error(err)

	var transportErr *TransportError
	r.False(errors.As(err, &transportErr))
}
