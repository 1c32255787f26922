package monitor

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/baditaflorin/go_startup_os/internal/models"
)

// TableSink prints a sweep as a plain text table once it completes.
type TableSink struct {
	w        io.Writer
	services []models.ServiceDescriptor

	mu      sync.Mutex
	started time.Time
	results map[string]models.ProbeResult
}

// NewTableSink prints rows in the order of services.
func NewTableSink(w io.Writer, services []models.ServiceDescriptor) *TableSink {
	return &TableSink{w: w, services: services, results: make(map[string]models.ProbeResult)}
}

func (t *TableSink) SetLastChecked(at time.Time) {
	t.mu.Lock()
	t.started = at
	t.results = make(map[string]models.ProbeResult, len(t.services))
	t.mu.Unlock()
}

func (t *TableSink) SetChecking(string) {}

func (t *TableSink) SetStatus(id string, res models.ProbeResult) {
	t.mu.Lock()
	t.results[id] = res
	t.mu.Unlock()
}

func (t *TableSink) SetOverall(o Overall) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tw := tabwriter.NewWriter(t.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tCATEGORY\tSTATUS\tLATENCY\tMETRIC\tERROR")
	for _, svc := range t.services {
		res, ok := t.results[svc.ID]
		if !ok {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\t\n", svc.ID, svc.Category, models.StatusIdle, models.LatencyText(0))
			continue
		}
		metric := ""
		if res.Metric != nil {
			metric = res.Metric.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			svc.ID, svc.Category, res.Status, models.LatencyText(res.LatencyMs), metric, res.Error)
	}
	_ = tw.Flush()

	fmt.Fprintf(t.w, "\n%s: %s (checked %s)\n", o.Status, o.Message, t.started.Format(time.RFC3339))
}
