package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runningman84/nas-job-report/pkg/events"
	"github.com/runningman84/nas-job-report/pkg/models"
	"github.com/runningman84/nas-job-report/pkg/units"
)

// Header is the fixed column schema of the report
var Header = []string{
	"Host", "Share", "Fileset", "Vendor", "Array Scan", "Protocol",
	"Time", "Duration", "Scan Rate", "Data Transferred", "Throughput",
}

const (
	scanRateUnit    = " f/s"
	absentScanRate  = "None"
	throughputUnit  = "/s"
	legacySeparator = ","
)

// SeriesSource fetches the detail of an event series
type SeriesSource interface {
	GetEventSeries(ctx context.Context, seriesID string) (*models.EventSeriesDetail, error)
}

// Renderer turns correlated fileset records into report rows
type Renderer struct {
	api         SeriesSource
	loc         *time.Location
	concurrency int
}

// NewRenderer creates a renderer displaying times in loc.
// concurrency bounds the number of parallel series fetches; values below 1 mean sequential.
func NewRenderer(api SeriesSource, loc *time.Location, concurrency int) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{
		api:         api,
		loc:         loc,
		concurrency: max(concurrency, 1),
	}
}

// Rows fetches the series detail of every record and computes its row.
// Rows are returned in record order regardless of concurrency; any failure aborts the whole set.
func (r *Renderer) Rows(ctx context.Context, records []models.FilesetRecord, inv *models.ShareInventory) ([]models.Row, error) {
	rows := make([]models.Row, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			row, err := r.row(gctx, rec, inv)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Render returns the legacy report lines: one header line followed by one line per record
func (r *Renderer) Render(ctx context.Context, records []models.FilesetRecord, inv *models.ShareInventory) ([]string, error) {
	rows, err := r.Rows(ctx, records, inv)
	if err != nil {
		return nil, err
	}
	return LegacyLines(rows), nil
}

func (r *Renderer) row(ctx context.Context, rec models.FilesetRecord, inv *models.ShareInventory) (models.Row, error) {
	share, ok := inv.Get(rec.ShareID)
	if !ok {
		return models.Row{}, fmt.Errorf("share %s of fileset %s is not in the inventory", rec.ShareID, rec.ID)
	}

	detail, err := r.api.GetEventSeries(ctx, rec.EventSeriesID)
	if err != nil {
		return models.Row{}, fmt.Errorf("failed to get event series of fileset %s: %w", rec.ID, err)
	}

	localTime, err := units.FormatLocalTime(rec.SnapshotDate, r.loc)
	if err != nil {
		return models.Row{}, fmt.Errorf("fileset %s: %w", rec.ID, err)
	}

	return models.Row{
		Host:                 share.Host,
		Share:                share.Share,
		Fileset:              rec.Name,
		Vendor:               share.Vendor,
		ArrayScan:            FormatFlag(share.ArrayScan),
		Protocol:             share.Protocol,
		Time:                 localTime,
		Duration:             units.TrimDuration(detail.Duration),
		ScanRate:             FormatScanRate(events.ExtractScanRate(detail)),
		DataTransferred:      units.ScaleBytes(float64(detail.DataTransferred), units.DefaultPrecision),
		Throughput:           units.ScaleBytes(float64(detail.Throughput), units.DefaultPrecision) + throughputUnit,
		DataTransferredBytes: detail.DataTransferred,
	}, nil
}

// FormatFlag renders a boolean as Y or N
func FormatFlag(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

// FormatScanRate renders a files-per-second rate as recorded; an absent rate renders as "None f/s"
func FormatScanRate(rate string, ok bool) string {
	if !ok {
		return absentScanRate + scanRateUnit
	}
	return rate + scanRateUnit
}

// LegacyHeader returns the historical header line, each column name followed by a colon
func LegacyHeader() string {
	cols := make([]string, len(Header))
	for i, h := range Header {
		cols[i] = h + ":"
	}
	return strings.Join(cols, legacySeparator)
}

// LegacyLines renders the header and rows as unquoted comma separated lines
func LegacyLines(rows []models.Row) []string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, LegacyHeader())
	for _, row := range rows {
		lines = append(lines, strings.Join(row.Fields(), legacySeparator))
	}
	return lines
}
