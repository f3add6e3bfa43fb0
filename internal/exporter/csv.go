package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"PowerPosition/internal/model"
)

const (
	filePrefix   = "PowerPosition_"
	fileStamp    = "20060102_1504"
	timeLayout   = "15:04"
	headerTime   = "Local Time"
	headerVolume = "Volume"
	fileMode     = 0o644
)

// Exporter writes intra-day reports as CSV files into one directory.
type Exporter struct {
	Dir string
}

// New creates the export directory if it is missing.
func New(dir string) (*Exporter, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: export directory is empty", model.ErrConfiguration)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir %s: %w", dir, err)
	}
	return &Exporter{Dir: dir}, nil
}

// FileName returns the report file name for a run triggered at local.
func FileName(local time.Time) string {
	return filePrefix + local.Format(fileStamp) + ".csv"
}

// WriteCSV writes the report with one row per bucket in ascending local time.
func WriteCSV(w io.Writer, report model.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{headerTime, headerVolume}); err != nil {
		return err
	}
	for _, b := range report.Buckets {
		if err := cw.Write([]string{b.LocalTime.Format(timeLayout), b.Volume.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes the report next to its final name and renames it into place,
// so readers never observe a partial file. It returns the full path.
func (e *Exporter) Export(report model.Report, localTrigger time.Time) (string, error) {
	path := filepath.Join(e.Dir, FileName(localTrigger))

	tmp, err := os.CreateTemp(e.Dir, ".tmp-"+filePrefix+"*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return "", fmt.Errorf("chmod report: %w", err)
	}
	if err := WriteCSV(tmp, report); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename report to %s: %w", path, err)
	}
	return path, nil
}
