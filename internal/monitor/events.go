package monitor

import (
	"sync"
	"time"

	"github.com/baditaflorin/go_startup_os/internal/models"
)

// Event types published to subscribers.
const (
	EventSweepStarted = "sweep_started"
	EventChecking     = "checking"
	EventStatus       = "status"
	EventOverall      = "overall"
)

// Event is one status update streamed to subscribers.
type Event struct {
	Type      string              `json:"type"`
	ServiceID string              `json:"service_id,omitempty"`
	Result    *models.ProbeResult `json:"result,omitempty"`
	Overall   *Overall            `json:"overall,omitempty"`
	At        time.Time           `json:"at"`
}

const subscriberBuffer = 64

// Broadcaster is a StatusSink that republishes updates as Events. Slow
// subscribers lose events rather than stalling a sweep.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
	now         func() time.Time
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]struct{}),
		now:         time.Now,
	}
}

// Subscribe registers a new listener.
func (b *Broadcaster) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch. Unknown channels are ignored.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Subscribers reports how many listeners are attached.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

func (b *Broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *Broadcaster) SetLastChecked(at time.Time) {
	b.publish(Event{Type: EventSweepStarted, At: at})
}

func (b *Broadcaster) SetChecking(id string) {
	b.publish(Event{Type: EventChecking, ServiceID: id, At: b.now()})
}

func (b *Broadcaster) SetStatus(id string, res models.ProbeResult) {
	b.publish(Event{Type: EventStatus, ServiceID: id, Result: &res, At: b.now()})
}

func (b *Broadcaster) SetOverall(o Overall) {
	b.publish(Event{Type: EventOverall, Overall: &o, At: b.now()})
}
