package operator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	"github.com/samber/lo"

	"github.com/runningman84/nas-job-report/pkg/config"
	"github.com/runningman84/nas-job-report/pkg/inventory"
	"github.com/runningman84/nas-job-report/pkg/models"
	"github.com/runningman84/nas-job-report/pkg/report"
)

// API is the cluster API consumed by the report pipeline
type API interface {
	inventory.API
	report.SeriesSource
	GetCluster(ctx context.Context) (*models.Cluster, error)
}

// requestCounter is implemented by APIs that count issued requests
type requestCounter interface {
	Requests() int64
}

// Operator drives the report pipeline
type Operator struct {
	config *config.Config
	api    API
	log    logr.Logger
}

// NewOperator creates a new operator instance
func NewOperator(cfg *config.Config, api API, log logr.Logger) *Operator {
	return &Operator{
		config: cfg,
		api:    api,
		log:    log,
	}
}

// Run builds the report and writes it to w. Nothing is written unless every step succeeds.
func (o *Operator) Run(ctx context.Context, w io.Writer) error {
	ctx = logr.NewContext(ctx, o.log)
	started := time.Now()

	o.logConfig()

	cluster, err := o.api.GetCluster(ctx)
	if err != nil {
		return fmt.Errorf("failed to get cluster info: %w", err)
	}
	loc, err := time.LoadLocation(cluster.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load cluster timezone %q: %w", cluster.Timezone, err)
	}
	o.log.V(1).Info("Cluster", "id", cluster.ID, "name", cluster.Name, "timezone", loc.String())

	o.log.Info("Gathering Share Data...")
	inv, err := inventory.BuildShareInventory(ctx, o.api)
	if err != nil {
		return err
	}
	o.logShares(inv)

	o.log.Info("Gathering Fileset and Event Data...")
	records, err := inventory.CorrelateFilesets(ctx, o.api, inv)
	if err != nil {
		return err
	}
	o.logRecords(records)

	o.log.Info("Creating Report...")
	rows, err := report.NewRenderer(o.api, loc, o.config.Concurrency).Rows(ctx, records, inv)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, o.config.Format, rows); err != nil {
		return err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	o.logSummary(inv, rows, time.Since(started))
	return nil
}

func (o *Operator) logConfig() {
	o.log.V(1).Info("Current config",
		"host", o.config.Host,
		"auth", o.authMode(),
		"insecure", o.config.Insecure,
		"timeout", o.config.Timeout.String(),
		"concurrency", o.config.Concurrency,
		"format", o.config.Format,
		"logLevel", o.config.LogLevel,
	)
}

func (o *Operator) authMode() string {
	if o.config.Token != "" {
		return "token"
	}
	return "basic"
}

func (o *Operator) logShares(inv *models.ShareInventory) {
	debug := o.log.V(1)
	if !debug.Enabled() {
		return
	}
	for _, id := range inv.IDs() {
		share, _ := inv.Get(id)
		debug.Info("Share", "id", share.ID, "host", share.Host, "share", share.Share,
			"protocol", share.Protocol, "vendor", share.Vendor, "arrayScan", share.ArrayScan)
	}
}

func (o *Operator) logRecords(records []models.FilesetRecord) {
	debug := o.log.V(1)
	if !debug.Enabled() {
		return
	}
	for _, rec := range records {
		debug.Info("Fileset", "id", rec.ID, "share", rec.ShareID, "name", rec.Name,
			"snapshot", rec.SnapshotDate, "eventSeries", rec.EventSeriesID)
	}
}

func (o *Operator) logSummary(inv *models.ShareInventory, rows []models.Row, elapsed time.Duration) {
	total := lo.SumBy(rows, func(r models.Row) int64 { return r.DataTransferredBytes })

	o.log.Info("Report completed",
		"shares", inv.Len(),
		"filesets", len(rows),
		"dataTransferred", humanize.IBytes(uint64(max(total, 0))),
		"elapsed", elapsed.Round(time.Millisecond).String(),
	)
	if counter, ok := o.api.(requestCounter); ok {
		o.log.V(1).Info("API usage", "requests", counter.Requests())
	}
}
