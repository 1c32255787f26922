package monitor

import (
	"time"

	"github.com/baditaflorin/go_startup_os/internal/models"
)

// ServiceState is the read model of one service for the status page.
type ServiceState struct {
	models.ServiceDescriptor
	State        models.Status       `json:"state"`
	Result       *models.ProbeResult `json:"result,omitempty"`
	History      []models.Status     `json:"history"`
	LatencyText  string              `json:"latency_text"`
	LatencyClass models.LatencyClass `json:"latency_class"`
	MetricText   string              `json:"metric_text,omitempty"`
}

// Services returns every service in registry order with its latest result.
func (m *Monitor) Services() []ServiceState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	services := m.registry.GetAll()
	list := make([]ServiceState, 0, len(services))
	for _, svc := range services {
		st := ServiceState{
			ServiceDescriptor: svc,
			State:             m.states[svc.ID],
			History:           append([]models.Status{}, m.history[svc.ID]...),
			LatencyText:       models.LatencyText(0),
			LatencyClass:      models.LatencyNone,
		}
		if res, ok := m.results[svc.ID]; ok {
			st.Result = &res
			st.LatencyText = models.LatencyText(res.LatencyMs)
			st.LatencyClass = models.ClassifyLatency(res.LatencyMs)
			if res.Metric != nil {
				st.MetricText = res.Metric.String()
			}
		}
		list = append(list, st)
	}
	return list
}

// Service returns the state of one service.
func (m *Monitor) Service(id string) (ServiceState, bool) {
	for _, st := range m.Services() {
		if st.ID == id {
			return st, true
		}
	}
	return ServiceState{}, false
}

// Result returns the latest settled result of a service.
func (m *Monitor) Result(id string) (models.ProbeResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.results[id]
	return res, ok
}

// Overall returns the roll-up of the last completed sweep.
func (m *Monitor) Overall() (Overall, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overall, m.hasOverall
}

// LastChecked is when the most recent sweep started.
func (m *Monitor) LastChecked() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastChecked
}
