package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	KindPrediction = "prediction"
	KindPatterns   = "pattern_analysis"

	reportTimestamp = "20060102_150405"
)

// fileStamp renders t to the millisecond so runs within the same second
// get distinct file names.
func fileStamp(t time.Time) string {
	return fmt.Sprintf("%s_%03d", t.Format(reportTimestamp), t.Nanosecond()/int(time.Millisecond))
}

// ReportWriter persists reports as indented JSON named
// <kind>_<yyyymmdd_hhmmss_mmm>.json.
type ReportWriter struct {
	dir string
	now func() time.Time
}

func NewReportWriter(dir string, now func() time.Time) (*ReportWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &ReportWriter{dir: dir, now: now}, nil
}

// Write stores report and returns the path written. The file appears
// atomically.
func (w *ReportWriter) Write(kind string, report any) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s report: %w", kind, err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.json", kind, fileStamp(w.now())))
	tmp, err := os.CreateTemp(w.dir, "."+kind+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
