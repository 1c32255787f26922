package monitor

import (
	"fmt"
	"time"

	"github.com/baditaflorin/go_startup_os/internal/models"
)

// Overall is the worst-case roll-up of the latest result set.
type Overall struct {
	Status    models.Status `json:"status"`
	Message   string        `json:"message"`
	Healthy   int           `json:"healthy"`
	Degraded  int           `json:"degraded"`
	Errors    int           `json:"errors"`
	Total     int           `json:"total"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Summarize aggregates results: any error wins, then any degraded, else
// healthy. It reports false for an empty set.
func Summarize(results []models.ProbeResult) (Overall, bool) {
	if len(results) == 0 {
		return Overall{}, false
	}

	var o Overall
	for _, r := range results {
		switch r.Status {
		case models.StatusHealthy:
			o.Healthy++
		case models.StatusDegraded:
			o.Degraded++
		case models.StatusError:
			o.Errors++
		}
		if r.CheckedAt.After(o.CheckedAt) {
			o.CheckedAt = r.CheckedAt
		}
	}
	o.Total = len(results)

	switch {
	case o.Errors > 0:
		o.Status = models.StatusError
		o.Message = fmt.Sprintf("%d %s down, %d degraded", o.Errors, plural(o.Errors), o.Degraded)
	case o.Degraded > 0:
		o.Status = models.StatusDegraded
		o.Message = fmt.Sprintf("%d %s degraded, %d healthy", o.Degraded, plural(o.Degraded), o.Healthy)
	default:
		o.Status = models.StatusHealthy
		o.Message = fmt.Sprintf("All systems operational (%d services)", o.Healthy)
	}
	return o, true
}

func plural(n int) string {
	if n == 1 {
		return "service"
	}
	return "services"
}
