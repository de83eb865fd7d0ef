package models

import (
	"slices"

	"github.com/samber/lo"
)

// Cluster holds the identity and configured timezone of a CDM cluster
type Cluster struct {
	ID       string
	Name     string
	Timezone string
}

// HostShare represents a raw NAS share entry as returned by the cluster
type HostShare struct {
	ID          string
	Hostname    string
	ExportPoint string
	ShareType   string
	Status      string
	VendorType  *string        // nil when the cluster omits the field
	Parameters  map[string]any // hostShareParameters, may be nil
}

// ShareRecord represents a share that is eligible for the report
type ShareRecord struct {
	ID        string
	Host      string
	Share     string
	Protocol  string
	Vendor    string
	ArrayScan bool
}

// ShareInventory maps share IDs to share records
type ShareInventory struct {
	Shares map[string]*ShareRecord
}

// NewShareInventory creates an empty inventory
func NewShareInventory() *ShareInventory {
	return &ShareInventory{Shares: make(map[string]*ShareRecord)}
}

// Add stores a share record, replacing any record with the same ID
func (i *ShareInventory) Add(share *ShareRecord) {
	i.Shares[share.ID] = share
}

// Get returns the share record for an ID
func (i *ShareInventory) Get(id string) (*ShareRecord, bool) {
	share, ok := i.Shares[id]
	return share, ok
}

// Len returns the number of shares in the inventory
func (i *ShareInventory) Len() int {
	return len(i.Shares)
}

// IDs returns the share IDs in ascending order
func (i *ShareInventory) IDs() []string {
	ids := lo.Keys(i.Shares)
	slices.Sort(ids)
	return ids
}

// Fileset represents a fileset entry of a share listing
type Fileset struct {
	ID          string
	Name        string
	SLADomainID string
}

// FilesetList is the result of listing the filesets of one share
type FilesetList struct {
	Total    int
	Filesets []Fileset
}

// Snapshot represents one fileset snapshot
type Snapshot struct {
	ID   string
	Date string // UTC, e.g. 2023-05-01T12:34:56.000Z
}

// FilesetDetail holds the snapshot list of a fileset
type FilesetDetail struct {
	ID            string
	SnapshotCount int
	Snapshots     []Snapshot
}

// LatestSnapshot returns the last snapshot of the list
func (d *FilesetDetail) LatestSnapshot() (Snapshot, bool) {
	if len(d.Snapshots) == 0 {
		return Snapshot{}, false
	}
	return d.Snapshots[len(d.Snapshots)-1], true
}

// EventSummary is one entry of the latest-events window
type EventSummary struct {
	EventSeriesID string
	EventType     string
	SeriesStatus  string
	ObjectID      string
	Time          string
}

// FilesetRecord represents a protected fileset with a successful backup to report
type FilesetRecord struct {
	ID            string
	ShareID       string
	Name          string
	SnapshotDate  string
	EventSeriesID string
}

// EventDetail is one entry of an event series
type EventDetail struct {
	EventName string
	EventInfo string // serialized JSON payload
}

// EventSeriesDetail holds the full detail of one backup run
type EventSeriesDetail struct {
	ID              string
	Duration        string // e.g. "5 minutes 30 seconds 0 ms"
	DataTransferred int64
	Throughput      int64 // bytes per second
	Details         []EventDetail
}

// Row is one rendered line of the report
type Row struct {
	Host            string `csv:"Host"`
	Share           string `csv:"Share"`
	Fileset         string `csv:"Fileset"`
	Vendor          string `csv:"Vendor"`
	ArrayScan       string `csv:"Array Scan"`
	Protocol        string `csv:"Protocol"`
	Time            string `csv:"Time"`
	Duration        string `csv:"Duration"`
	ScanRate        string `csv:"Scan Rate"`
	DataTransferred string `csv:"Data Transferred"`
	Throughput      string `csv:"Throughput"`

	// raw byte count, used for summaries only
	DataTransferredBytes int64 `csv:"-"`
}

// Fields returns the row values in header order
func (r Row) Fields() []string {
	return []string{
		r.Host, r.Share, r.Fileset, r.Vendor, r.ArrayScan, r.Protocol,
		r.Time, r.Duration, r.ScanRate, r.DataTransferred, r.Throughput,
	}
}
