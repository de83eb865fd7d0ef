package inventory

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/runningman84/nas-job-report/pkg/events"
	"github.com/runningman84/nas-job-report/pkg/models"
)

const (
	// StatusReplicationTarget marks shares that only receive replicas and are never reported
	StatusReplicationTarget = "REPLICATION_TARGET"
	// Unprotected is the SLA domain ID of filesets without a backup policy
	Unprotected = "UNPROTECTED"
	// GenericVendor is reported for shares without a vendor type
	GenericVendor = "Generic"

	VendorIsilon = "ISILON"
	VendorNetApp = "NETAPP"

	isilonChangelistParam = "isIsilonChangelistEnabled"
	netAppSnapDiffParam   = "isNetAppSnapDiffEnabled"
)

// API is the subset of the cluster API needed to build the inventory and correlate filesets
type API interface {
	ListShares(ctx context.Context) ([]*models.HostShare, error)
	ListFilesets(ctx context.Context, shareID string) (*models.FilesetList, error)
	GetFileset(ctx context.Context, filesetID string) (*models.FilesetDetail, error)
	LatestEvents(ctx context.Context, limit int, objectIDs ...string) ([]models.EventSummary, error)
}

// BuildShareInventory lists the NAS shares of the cluster, leaving out replication targets
func BuildShareInventory(ctx context.Context, api API) (*models.ShareInventory, error) {
	log := logr.FromContextOrDiscard(ctx)

	shares, err := api.ListShares(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}

	inv := models.NewShareInventory()
	for _, share := range shares {
		if share.Status == StatusReplicationTarget {
			log.V(1).Info("Skipping replication target", "share", share.ID, "host", share.Hostname)
			continue
		}

		vendor := GenericVendor
		if share.VendorType != nil && *share.VendorType != "" {
			vendor = *share.VendorType
		}

		// absent flag reads as disabled
		arrayScan, _ := LookupArrayScan(share)

		inv.Add(&models.ShareRecord{
			ID:        share.ID,
			Host:      share.Hostname,
			Share:     share.ExportPoint,
			Protocol:  share.ShareType,
			Vendor:    vendor,
			ArrayScan: arrayScan,
		})
	}

	return inv, nil
}

// LookupArrayScan reads the vendor specific array-assisted scan flag of a share.
// found is false when the vendor has no such flag or the share does not carry it.
func LookupArrayScan(share *models.HostShare) (enabled bool, found bool) {
	if share == nil || share.VendorType == nil {
		return false, false
	}

	var key string
	switch *share.VendorType {
	case VendorIsilon:
		key = isilonChangelistParam
	case VendorNetApp:
		key = netAppSnapDiffParam
	default:
		return false, false
	}

	raw, ok := share.Parameters[key]
	if !ok {
		return false, false
	}
	enabled, ok = raw.(bool)
	if !ok {
		return false, false
	}
	return enabled, true
}

// CorrelateFilesets walks the inventory in share ID order and returns one record per
// protected fileset that has snapshots and a successful backup in its recent event window
func CorrelateFilesets(ctx context.Context, api API, inv *models.ShareInventory) ([]models.FilesetRecord, error) {
	log := logr.FromContextOrDiscard(ctx)

	var records []models.FilesetRecord
	for _, shareID := range inv.IDs() {
		list, err := api.ListFilesets(ctx, shareID)
		if err != nil {
			return nil, fmt.Errorf("failed to list filesets of share %s: %w", shareID, err)
		}
		if list.Total == 0 {
			continue
		}

		for _, fs := range list.Filesets {
			if fs.SLADomainID == Unprotected {
				log.V(1).Info("Skipping unprotected fileset", "share", shareID, "fileset", fs.ID)
				continue
			}

			detail, err := api.GetFileset(ctx, fs.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to get fileset %s: %w", fs.ID, err)
			}
			latest, ok := detail.LatestSnapshot()
			if detail.SnapshotCount == 0 || !ok {
				log.V(1).Info("Skipping fileset without snapshots", "share", shareID, "fileset", fs.ID)
				continue
			}

			summaries, err := api.LatestEvents(ctx, events.WindowSize, shareID, fs.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to get events of fileset %s: %w", fs.ID, err)
			}
			seriesID, ok := events.SelectSuccessfulBackup(summaries)
			if !ok {
				log.V(1).Info("No successful backup in recent events", "share", shareID, "fileset", fs.ID, "window", events.WindowSize)
				continue
			}

			records = append(records, models.FilesetRecord{
				ID:            fs.ID,
				ShareID:       shareID,
				Name:          fs.Name,
				SnapshotDate:  latest.Date,
				EventSeriesID: seriesID,
			})
		}
	}

	return records, nil
}
