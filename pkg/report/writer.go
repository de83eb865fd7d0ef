package report

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"github.com/runningman84/nas-job-report/pkg/config"
	"github.com/runningman84/nas-job-report/pkg/models"
)

// Write emits the rows in the given format. The output is built completely before
// anything is written to w.
func Write(w io.Writer, format string, rows []models.Row) error {
	switch format {
	case config.FormatLegacy, "":
		return writeLegacy(w, rows)
	case config.FormatCSV:
		return writeCSV(w, rows)
	case config.FormatTable:
		return writeTable(w, rows)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

func writeLegacy(w io.Writer, rows []models.Row) error {
	var out []byte
	for _, line := range LegacyLines(rows) {
		out = append(out, line...)
		out = append(out, '\n')
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, rows []models.Row) error {
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return fmt.Errorf("failed to encode CSV report: %w", err)
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeTable(w io.Writer, rows []models.Row) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row(lo.ToAnySlice(Header)))
	t.SetStyle(table.StyleLight)
	for _, row := range rows {
		t.AppendRow(table.Row(lo.ToAnySlice(row.Fields())))
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
