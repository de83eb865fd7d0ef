package parser

import (
	"bytes"
	"fmt"

	json "github.com/json-iterator/go"

	"github.com/runningman84/nas-job-report/pkg/models"
)

// ClusterJSON represents the response of /v1/cluster/me
type ClusterJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone struct {
		Timezone string `json:"timezone"`
	} `json:"timezone"`
}

// HostShareJSON represents one entry of /internal/host/share
type HostShareJSON struct {
	ID                  string         `json:"id"`
	Hostname            string         `json:"hostname"`
	ExportPoint         string         `json:"exportPoint"`
	ShareType           string         `json:"shareType"`
	Status              string         `json:"status"`
	VendorType          *string        `json:"vendorType,omitempty"`
	HostShareParameters map[string]any `json:"hostShareParameters,omitempty"`
}

// HostShareResponse represents the root response of /internal/host/share
type HostShareResponse struct {
	HasMore bool            `json:"hasMore"`
	Total   int             `json:"total"`
	Data    []HostShareJSON `json:"data"`
}

// FilesetJSON represents one entry of /v1/fileset
type FilesetJSON struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	TemplateName          string `json:"templateName"`
	ConfiguredSLADomainID string `json:"configuredSlaDomainId"`
	ShareID               string `json:"shareId,omitempty"`
}

// FilesetResponse represents the root response of /v1/fileset
type FilesetResponse struct {
	HasMore bool          `json:"hasMore"`
	Total   int           `json:"total"`
	Data    []FilesetJSON `json:"data"`
}

// SnapshotJSON represents a snapshot of /v1/fileset/{id}
type SnapshotJSON struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

// FilesetDetailJSON represents the response of /v1/fileset/{id}
type FilesetDetailJSON struct {
	ID            string         `json:"id"`
	SnapshotCount int            `json:"snapshotCount"`
	Snapshots     []SnapshotJSON `json:"snapshots"`
}

// LatestEventJSON represents the latestEvent object of an event summary
type LatestEventJSON struct {
	ID            string `json:"id"`
	ObjectID      string `json:"objectId"`
	EventType     string `json:"eventType"`
	EventStatus   string `json:"eventStatus"`
	EventSeriesID string `json:"eventSeriesId"`
	Time          string `json:"time"`
}

// EventSummaryJSON represents one entry of /v1/event/latest
type EventSummaryJSON struct {
	LatestEvent       LatestEventJSON `json:"latestEvent"`
	EventSeriesStatus string          `json:"eventSeriesStatus"`
}

// EventLatestResponse represents the root response of /v1/event/latest
type EventLatestResponse struct {
	HasMore bool               `json:"hasMore"`
	Data    []EventSummaryJSON `json:"data"`
}

// EventDetailJSON represents one entry of eventDetailList
type EventDetailJSON struct {
	ID        string `json:"id"`
	EventName string `json:"eventName"`
	EventInfo string `json:"eventInfo"`
	Time      string `json:"time"`
}

// EventSeriesJSON represents the response of /v1/event_series/{id}
type EventSeriesJSON struct {
	EventSeriesID   string            `json:"eventSeriesId"`
	Duration        string            `json:"duration"`
	DataTransferred float64           `json:"dataTransferred"`
	Throughput      float64           `json:"throughput"`
	EventDetailList []EventDetailJSON `json:"eventDetailList"`
}

// eventInfoJSON is the part of a serialized eventInfo payload that carries parameters
type eventInfoJSON struct {
	Params map[string]json.RawMessage `json:"params"`
}

// ParseClusterJSON parses the cluster identity response
func ParseClusterJSON(data []byte) (*models.Cluster, error) {
	var response ClusterJSON

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &models.Cluster{
		ID:       response.ID,
		Name:     response.Name,
		Timezone: response.Timezone.Timezone,
	}, nil
}

// ParseHostSharesJSON parses the host share listing
func ParseHostSharesJSON(data []byte) ([]*models.HostShare, error) {
	var response HostShareResponse

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	shares := make([]*models.HostShare, 0, len(response.Data))
	for _, hs := range response.Data {
		shares = append(shares, &models.HostShare{
			ID:          hs.ID,
			Hostname:    hs.Hostname,
			ExportPoint: hs.ExportPoint,
			ShareType:   hs.ShareType,
			Status:      hs.Status,
			VendorType:  hs.VendorType,
			Parameters:  hs.HostShareParameters,
		})
	}

	return shares, nil
}

// ParseFilesetsJSON parses the fileset listing of a share
func ParseFilesetsJSON(data []byte) (*models.FilesetList, error) {
	var response FilesetResponse

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	list := &models.FilesetList{
		Total:    response.Total,
		Filesets: make([]models.Fileset, 0, len(response.Data)),
	}
	for _, fs := range response.Data {
		list.Filesets = append(list.Filesets, models.Fileset{
			ID:          fs.ID,
			Name:        fs.TemplateName,
			SLADomainID: fs.ConfiguredSLADomainID,
		})
	}

	return list, nil
}

// ParseFilesetDetailJSON parses the detail (snapshot list) of a fileset
func ParseFilesetDetailJSON(data []byte) (*models.FilesetDetail, error) {
	var response FilesetDetailJSON

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	detail := &models.FilesetDetail{
		ID:            response.ID,
		SnapshotCount: response.SnapshotCount,
		Snapshots:     make([]models.Snapshot, 0, len(response.Snapshots)),
	}
	for _, snap := range response.Snapshots {
		detail.Snapshots = append(detail.Snapshots, models.Snapshot{ID: snap.ID, Date: snap.Date})
	}

	return detail, nil
}

// ParseLatestEventsJSON parses the recent event window, keeping the cluster's order (newest first)
func ParseLatestEventsJSON(data []byte) ([]models.EventSummary, error) {
	var response EventLatestResponse

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	summaries := make([]models.EventSummary, 0, len(response.Data))
	for _, ev := range response.Data {
		summaries = append(summaries, models.EventSummary{
			EventSeriesID: ev.LatestEvent.EventSeriesID,
			EventType:     ev.LatestEvent.EventType,
			SeriesStatus:  ev.EventSeriesStatus,
			ObjectID:      ev.LatestEvent.ObjectID,
			Time:          ev.LatestEvent.Time,
		})
	}

	return summaries, nil
}

// ParseEventSeriesJSON parses the full detail of an event series
func ParseEventSeriesJSON(data []byte) (*models.EventSeriesDetail, error) {
	var response EventSeriesJSON

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	detail := &models.EventSeriesDetail{
		ID:              response.EventSeriesID,
		Duration:        response.Duration,
		DataTransferred: int64(response.DataTransferred),
		Throughput:      int64(response.Throughput),
		Details:         make([]models.EventDetail, 0, len(response.EventDetailList)),
	}
	for _, ed := range response.EventDetailList {
		detail.Details = append(detail.Details, models.EventDetail{
			EventName: ed.EventName,
			EventInfo: ed.EventInfo,
		})
	}

	return detail, nil
}

// ParseEventInfoParam reads a single scalar parameter out of a serialized eventInfo payload
// and returns its text as sent by the cluster. A JSON string is returned unquoted, a JSON
// number keeps its literal form. Any other shape, including a malformed payload or an
// empty string, yields ok == false.
func ParseEventInfoParam(eventInfo, key string) (value string, ok bool) {
	var info eventInfoJSON
	if err := json.UnmarshalFromString(eventInfo, &info); err != nil {
		return "", false
	}

	raw := bytes.TrimSpace(info.Params[key])
	if len(raw) == 0 {
		return "", false
	}

	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	case c == '-' || (c >= '0' && c <= '9'):
		return string(raw), true
	default:
		return "", false
	}
}
