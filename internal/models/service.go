package models

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Category groups services on the status page.
type Category string

const (
	CategoryFrontend       Category = "frontend"
	CategoryAPI            Category = "api"
	CategoryInfrastructure Category = "infrastructure"
)

// Categories lists the known categories in display order.
var Categories = []Category{CategoryFrontend, CategoryAPI, CategoryInfrastructure}

// ProbeMode selects how a service is checked.
type ProbeMode string

const (
	ModeReal      ProbeMode = "real"
	ModeSimulated ProbeMode = "simulated"
)

// Status is the state of a single service or of the whole sweep.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusChecking Status = "checking"
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
)

// Settled reports whether s is one of the terminal probe outcomes.
func (s Status) Settled() bool {
	return s == StatusHealthy || s == StatusDegraded || s == StatusError
}

// MetricKind names the extra figure an infrastructure service reports.
type MetricKind string

const (
	MetricNone        MetricKind = ""
	MetricConnections MetricKind = "connections"
	MetricMemory      MetricKind = "memory"
	MetricStorage     MetricKind = "storage"
)

// Metric is a category specific measurement attached to a probe result.
type Metric struct {
	Kind  MetricKind `json:"kind"`
	Value float64    `json:"value"`
}

// String renders the metric the way the status page shows it.
func (m Metric) String() string {
	switch m.Kind {
	case MetricConnections:
		return fmt.Sprintf("%d / 100", int(m.Value))
	case MetricMemory:
		return strconv.FormatFloat(m.Value, 'f', 1, 64) + " MB"
	case MetricStorage:
		return strconv.FormatFloat(m.Value, 'f', 1, 64) + " GB"
	}
	return ""
}

// ServiceDescriptor is the static record of one monitored service.
type ServiceDescriptor struct {
	ID       string     `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	URL      string     `json:"url" yaml:"url"`
	Category Category   `json:"category" yaml:"category"`
	Mode     ProbeMode  `json:"mode" yaml:"mode"`
	Method   string     `json:"method,omitempty" yaml:"method,omitempty"`
	Metric   MetricKind `json:"metric,omitempty" yaml:"metric,omitempty"`
}

// RequestMethod returns the configured method, GET when unset.
func (d ServiceDescriptor) RequestMethod() string {
	if d.Method == "" {
		return "GET"
	}
	return strings.ToUpper(d.Method)
}

// Scheme returns the URL scheme of the endpoint ("https", "postgres", "s3"...).
func (d ServiceDescriptor) Scheme() string {
	u, err := url.Parse(d.URL)
	if err != nil {
		idx := strings.Index(d.URL, "://")
		if idx == -1 {
			return ""
		}
		return d.URL[:idx]
	}
	return u.Scheme
}

// Validate checks a descriptor in isolation.
func (d ServiceDescriptor) Validate() error {
	if d.ID == "" {
		return errors.New("service id is required")
	}
	if d.URL == "" {
		return fmt.Errorf("service %q: url is required", d.ID)
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return fmt.Errorf("service %q: invalid url: %w", d.ID, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("service %q: url %q has no scheme", d.ID, d.URL)
	}

	switch d.Category {
	case CategoryFrontend, CategoryAPI, CategoryInfrastructure:
	default:
		return fmt.Errorf("service %q: unknown category %q", d.ID, d.Category)
	}

	switch d.Mode {
	case ModeReal:
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("service %q: real probes need an http(s) url, got %q", d.ID, u.Scheme)
		}
	case ModeSimulated:
	default:
		return fmt.Errorf("service %q: unknown probe mode %q", d.ID, d.Mode)
	}

	switch d.Metric {
	case MetricNone, MetricConnections, MetricMemory, MetricStorage:
	default:
		return fmt.Errorf("service %q: unknown metric %q", d.ID, d.Metric)
	}
	if d.Metric != MetricNone && d.Category != CategoryInfrastructure {
		return fmt.Errorf("service %q: metric %q is only valid for %s services", d.ID, d.Metric, CategoryInfrastructure)
	}
	return nil
}

// ProbeResult is the outcome of one probe of one service.
type ProbeResult struct {
	Status     Status    `json:"status"`
	LatencyMs  int64     `json:"latency_ms"`
	StatusCode int       `json:"status_code,omitempty"`
	Metric     *Metric   `json:"metric,omitempty"`
	Error      string    `json:"error,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// LatencyClass buckets a response time for colouring.
type LatencyClass string

const (
	LatencyNone     LatencyClass = "none"
	LatencyFast     LatencyClass = "fast"
	LatencySlow     LatencyClass = "slow"
	LatencyCritical LatencyClass = "critical"
)

// ClassifyLatency maps milliseconds to a display class.
func ClassifyLatency(ms int64) LatencyClass {
	switch {
	case ms <= 0:
		return LatencyNone
	case ms < 200:
		return LatencyFast
	case ms < 500:
		return LatencySlow
	default:
		return LatencyCritical
	}
}

// LatencyText is the response time label, a dash placeholder when unknown.
func LatencyText(ms int64) string {
	if ms <= 0 {
		return "— ms"
	}
	return fmt.Sprintf("%d ms", ms)
}

// Registry holds the immutable, ordered set of service descriptors.
type Registry struct {
	services []ServiceDescriptor
	index    map[string]int
}

// NewRegistry validates and indexes descriptors. Order is preserved.
func NewRegistry(services ...ServiceDescriptor) (*Registry, error) {
	r := &Registry{
		services: make([]ServiceDescriptor, 0, len(services)),
		index:    make(map[string]int, len(services)),
	}
	for _, s := range services {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.index[s.ID]; dup {
			return nil, fmt.Errorf("duplicate service id %q", s.ID)
		}
		r.index[s.ID] = len(r.services)
		r.services = append(r.services, s)
	}
	return r, nil
}

// GetAll returns a copy of all descriptors in registry order.
func (r *Registry) GetAll() []ServiceDescriptor {
	list := make([]ServiceDescriptor, len(r.services))
	copy(list, r.services)
	return list
}

// Get looks a descriptor up by id.
func (r *Registry) Get(id string) (ServiceDescriptor, bool) {
	i, ok := r.index[id]
	if !ok {
		return ServiceDescriptor{}, false
	}
	return r.services[i], true
}

// Len is the number of registered services.
func (r *Registry) Len() int {
	return len(r.services)
}
