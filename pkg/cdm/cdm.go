package cdm

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/runningman84/nas-job-report/pkg/models"
	"github.com/runningman84/nas-job-report/pkg/parser"
)

// Manager exposes the cluster resources used by the report
type Manager struct {
	fetcher  Fetcher
	log      logr.Logger
	requests atomic.Int64
}

// NewManager creates a new API manager
func NewManager(fetcher Fetcher, log logr.Logger) *Manager {
	return &Manager{
		fetcher: fetcher,
		log:     log,
	}
}

// Requests returns the number of requests issued so far
func (m *Manager) Requests() int64 {
	return m.requests.Load()
}

// logRequest logs the request being issued at debug level
func (m *Manager) logRequest(version, path string, params url.Values) {
	m.log.V(1).Info("Issuing request", "version", version, "path", path, "query", params.Encode())
}

// logResult logs the request result at debug level
func (m *Manager) logResult(path string, body []byte, err error) {
	if err != nil {
		m.log.V(1).Info("Request failed", "path", path, "error", err.Error())
		return
	}
	m.log.V(1).Info("Request succeeded", "path", path, "bytes", len(body))
}

func (m *Manager) get(ctx context.Context, version, path string, params url.Values) ([]byte, error) {
	m.logRequest(version, path, params)
	m.requests.Add(1)
	body, err := m.fetcher.Get(ctx, version, path, params)
	m.logResult(path, body, err)
	return body, err
}

// GetCluster retrieves the cluster identity and timezone
func (m *Manager) GetCluster(ctx context.Context) (*models.Cluster, error) {
	body, err := m.get(ctx, APIVersionV1, "/cluster/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster info: %w", err)
	}

	cluster, err := parser.ParseClusterJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cluster JSON: %w", err)
	}

	return cluster, nil
}

// ListShares retrieves all NAS host shares
func (m *Manager) ListShares(ctx context.Context) ([]*models.HostShare, error) {
	body, err := m.get(ctx, APIVersionInternal, "/host/share", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list host shares: %w", err)
	}

	shares, err := parser.ParseHostSharesJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse host shares JSON: %w", err)
	}

	return shares, nil
}

// ListFilesets retrieves the filesets attached to a share
func (m *Manager) ListFilesets(ctx context.Context, shareID string) (*models.FilesetList, error) {
	params := url.Values{}
	params.Set("share_id", shareID)

	body, err := m.get(ctx, APIVersionV1, "/fileset", params)
	if err != nil {
		return nil, fmt.Errorf("failed to list filesets of share %s: %w", shareID, err)
	}

	list, err := parser.ParseFilesetsJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filesets JSON: %w", err)
	}

	return list, nil
}

// GetFileset retrieves the snapshot list of a fileset
func (m *Manager) GetFileset(ctx context.Context, filesetID string) (*models.FilesetDetail, error) {
	body, err := m.get(ctx, APIVersionV1, "/fileset/"+url.PathEscape(filesetID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get fileset %s: %w", filesetID, err)
	}

	detail, err := parser.ParseFilesetDetailJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fileset JSON: %w", err)
	}

	return detail, nil
}

// LatestEvents retrieves the most recent event summaries for the given objects, newest first
func (m *Manager) LatestEvents(ctx context.Context, limit int, objectIDs ...string) ([]models.EventSummary, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("object_ids", strings.Join(objectIDs, ","))

	body, err := m.get(ctx, APIVersionV1, "/event/latest", params)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest events: %w", err)
	}

	summaries, err := parser.ParseLatestEventsJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse events JSON: %w", err)
	}

	return summaries, nil
}

// GetEventSeries retrieves the full detail of an event series
func (m *Manager) GetEventSeries(ctx context.Context, seriesID string) (*models.EventSeriesDetail, error) {
	body, err := m.get(ctx, APIVersionV1, "/event_series/"+url.PathEscape(seriesID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get event series %s: %w", seriesID, err)
	}

	detail, err := parser.ParseEventSeriesJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event series JSON: %w", err)
	}
	if detail.ID == "" {
		detail.ID = seriesID
	}

	return detail, nil
}
