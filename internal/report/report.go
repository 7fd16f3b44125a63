// Package report renders reconciliation rows as a CSV file and a text table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Report is a titled table. Every row must be as wide as the header.
type Report struct {
	Title  string
	Kind   string
	Header []string
	Rows   [][]string
}

func (r Report) Validate() error {
	if len(r.Header) == 0 {
		return fmt.Errorf("report %q has no header", r.Title)
	}
	for i, row := range r.Rows {
		if len(row) != len(r.Header) {
			return fmt.Errorf("report %q row %d has %d fields, want %d", r.Title, i, len(row), len(r.Header))
		}
	}
	return nil
}

// WriteCSV writes the header followed by every row.
func (r Report) WriteCSV(w io.Writer) error {
	if err := r.Validate(); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(r.Rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// FileName is the dated report file name, e.g. 2024-08-10_pending-report.csv.
func (r Report) FileName(now time.Time) string {
	kind := r.Kind
	if kind == "" {
		kind = "daily"
	}
	return fmt.Sprintf("%s_%s-report.csv", now.Format("2006-01-02"), kind)
}

// SaveCSV writes the report under dir and returns the file path.
func (r Report) SaveCSV(dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, r.FileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	if err := r.WriteCSV(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report file: %w", err)
	}
	return path, nil
}

// Table renders the report as a bordered plain-text table.
func (r Report) Table() string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(r.Header...).
		Rows(r.Rows...).
		String()
}
