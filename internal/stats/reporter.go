package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// Reporter periodically logs the collector totals and can dump them to a
// JSON file on shutdown.
type Reporter struct {
	collector   *Collector
	intervalSec int
	exportFile  string
}

// NewReporter creates a new statistics reporter.
func NewReporter(collector *Collector, intervalSec int, exportFile string) *Reporter {
	return &Reporter{
		collector:   collector,
		intervalSec: intervalSec,
		exportFile:  exportFile,
	}
}

// StartPeriodicReport begins periodic statistics reporting in a goroutine.
func (r *Reporter) StartPeriodicReport(ctx context.Context) {
	if r.intervalSec <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(time.Duration(r.intervalSec) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Report()
			}
		}
	}()
}

// Report logs the current totals.
func (r *Reporter) Report() {
	snap := r.collector.Snapshot()
	log.WithFields(r.fields(snap)).Info("Transaction statistics")
}

func (r *Reporter) fields(snap Totals) log.Fields {
	return log.Fields{
		"sent":          snap.Sent,
		"received":      snap.Received,
		"retransmits":   snap.Retransmits,
		"duplicates":    snap.Duplicates,
		"timeouts":      snap.Timeouts,
		"active_local":  snap.ActiveLocal,
		"active_remote": snap.ActiveRemote,
	}
}

// ExportJSON writes the current totals to the configured file.
func (r *Reporter) ExportJSON() error {
	if r.exportFile == "" {
		return nil
	}

	data, err := json.MarshalIndent(r.collector.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats JSON: %w", err)
	}

	if err := os.WriteFile(r.exportFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write stats file %s: %w", r.exportFile, err)
	}

	log.WithField("file", r.exportFile).Info("Statistics exported to JSON")
	return nil
}
