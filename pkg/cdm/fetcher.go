package cdm

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/runningman84/nas-job-report/pkg/config"
)

const (
	headerUserAgent = "User-Agent"
	headerAccept    = "Accept"
	userAgentName   = "nas-job-report"
	apiPathPrefix   = "/api"
)

// API versions understood by the cluster
const (
	APIVersionV1       = "v1"
	APIVersionInternal = "internal"
)

// Fetcher performs authenticated GET requests against the cluster REST API
type Fetcher interface {
	Get(ctx context.Context, version, path string, params url.Values) ([]byte, error)
}

// TransportError is returned when a request fails on the network or with a non-2xx status
type TransportError struct {
	Path       string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("request %s failed with status %d: %v", e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("request %s failed: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type restFetcher struct {
	client *resty.Client
}

// NewRESTFetcher creates a Fetcher for the configured cluster.
// A token takes precedence over user and password.
func NewRESTFetcher(cfg *config.Config, version string) Fetcher {
	client := resty.New()
	client.SetBaseURL(BaseURL(cfg.Host))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader(headerUserAgent, userAgentName+"/"+version)
	client.SetHeader(headerAccept, "application/json")
	if cfg.Insecure {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	}

	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	} else {
		client.SetBasicAuth(cfg.Username, cfg.Password)
	}

	return &restFetcher{client: client}
}

// BaseURL returns the API root for a cluster address. Bare hosts default to https.
func BaseURL(host string) string {
	host = strings.TrimSuffix(host, "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host + apiPathPrefix
}

func (f *restFetcher) Get(ctx context.Context, version, path string, params url.Values) ([]byte, error) {
	fullPath := "/" + version + path

	req := f.client.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParamsFromValues(params)
	}

	resp, err := req.Get(fullPath)
	if err != nil {
		return nil, &TransportError{Path: fullPath, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &TransportError{
			Path:       fullPath,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("%s: %s", resp.Status(), strings.TrimSpace(string(resp.Body()))),
		}
	}

	return resp.Body(), nil
}
