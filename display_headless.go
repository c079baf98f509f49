//go:build headless

package main

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

func init() {
	compiledFeatures = append(compiledFeatures, "display:headless")
}

// PanelDisplay in headless builds logs the panels that changed instead of
// drawing them.
type PanelDisplay struct {
	synth   *Synth
	logger  *slog.Logger
	tracker panelTracker
}

func NewPanelDisplay(synth *Synth, ctrl *MIDIController, logger *slog.Logger) *PanelDisplay {
	if logger == nil {
		logger = slog.Default()
	}
	return &PanelDisplay{
		synth:  synth,
		logger: logger.With("component", "display"),
	}
}

func (d *PanelDisplay) Run(ctx context.Context) error {
	ticker := time.NewTicker(DISPLAY_POLL_MS * time.Millisecond)
	defer ticker.Stop()
	for {
		d.refresh()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (d *PanelDisplay) refresh() {
	snap := d.synth.Snapshot()
	for _, p := range d.tracker.changed(snap) {
		d.logger.Info("panel", "name", p.String(), "values", strings.Join(panelLines(p, snap), " | "))
	}
}
