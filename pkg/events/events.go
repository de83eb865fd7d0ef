package events

import (
	"github.com/runningman84/nas-job-report/pkg/models"
	"github.com/runningman84/nas-job-report/pkg/parser"
)

// WindowSize is the number of recent events requested per fileset
const WindowSize = 10

const (
	// BackupEventType marks events belonging to a backup run
	BackupEventType = "Backup"
	// SuccessStatus is the series status of a completed backup run
	SuccessStatus = "Success"
	// ScanFinishedEvent is the detail entry emitted when the fileset metadata scan completes
	ScanFinishedEvent = "Fileset.FilesetMetadataScanFinished"
	// ScanRateParam is the eventInfo parameter carrying the files-per-second scan rate
	ScanRateParam = "${scanRate}"
)

// SelectSuccessfulBackup returns the event series ID of the newest successful backup
// among the first WindowSize summaries. ok is false when none qualifies.
func SelectSuccessfulBackup(summaries []models.EventSummary) (seriesID string, ok bool) {
	for i, summary := range summaries {
		if i >= WindowSize {
			break
		}
		if summary.EventType == BackupEventType && summary.SeriesStatus == SuccessStatus {
			return summary.EventSeriesID, true
		}
	}
	return "", false
}

// ExtractScanRate returns the scan rate recorded by the first scan finished entry of a series.
// The rate keeps the text recorded by the cluster. A missing entry or a payload without
// a scalar scan rate yields ok == false.
func ExtractScanRate(detail *models.EventSeriesDetail) (rate string, ok bool) {
	if detail == nil {
		return "", false
	}
	for _, d := range detail.Details {
		if d.EventName != ScanFinishedEvent {
			continue
		}
		return parser.ParseEventInfoParam(d.EventInfo, ScanRateParam)
	}
	return "", false
}
