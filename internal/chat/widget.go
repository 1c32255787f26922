package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyMessage is returned by Send for blank input. Nothing is appended.
var ErrEmptyMessage = errors.New("chat: empty message")

// Default thinking delay range, half-open.
const (
	DefaultMinDelay = 800 * time.Millisecond
	DefaultMaxDelay = 1200 * time.Millisecond
)

// Role identifies who wrote a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one entry of the conversation.
type Message struct {
	ID     string    `json:"id"`
	Role   Role      `json:"role"`
	Text   string    `json:"text"`
	Typing bool      `json:"typing,omitempty"`
	At     time.Time `json:"at"`
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Widget is the conversation state behind the chat bubble.
type Widget struct {
	responder *Responder
	rand      Rand
	sleep     Sleeper
	minDelay  time.Duration
	maxDelay  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	open     bool
	messages []Message
}

// WidgetOption configures a Widget.
type WidgetOption func(*Widget)

// WithDelay sets the thinking delay range [min, max).
func WithDelay(min, max time.Duration) WidgetOption {
	return func(w *Widget) {
		w.minDelay = min
		w.maxDelay = max
	}
}

// WithSleeper replaces the real sleep.
func WithSleeper(s Sleeper) WidgetOption {
	return func(w *Widget) { w.sleep = s }
}

// WithRand sets the source for the thinking delay.
func WithRand(r Rand) WidgetOption {
	return func(w *Widget) { w.rand = r }
}

// NewWidget creates a closed widget holding the welcome message.
func NewWidget(responder *Responder, opts ...WidgetOption) *Widget {
	w := &Widget{
		responder: responder,
		rand:      globalRand{},
		sleep:     sleepContext,
		minDelay:  DefaultMinDelay,
		maxDelay:  DefaultMaxDelay,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.messages = []Message{w.message(RoleBot, Welcome)}
	return w
}

// Open shows the chat window.
func (w *Widget) Open() {
	w.mu.Lock()
	w.open = true
	w.mu.Unlock()
}

// Close hides the chat window. The conversation is kept.
func (w *Widget) Close() {
	w.mu.Lock()
	w.open = false
	w.mu.Unlock()
}

// IsOpen reports whether the window is shown.
func (w *Widget) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// Messages returns a copy of the conversation.
func (w *Widget) Messages() []Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Message(nil), w.messages...)
}

// Suggestions returns the chip texts.
func (w *Widget) Suggestions() []string {
	return append([]string(nil), Suggestions...)
}

// ThinkingDelay draws a delay in [minDelay, maxDelay).
func (w *Widget) ThinkingDelay() time.Duration {
	span := w.maxDelay - w.minDelay
	return w.minDelay + time.Duration(w.rand.Float64()*float64(span))
}

// Send appends the user's message, shows a typing indicator for the
// thinking delay and then appends the answer, which it returns. Blank text
// returns ErrEmptyMessage and changes nothing.
func (w *Widget) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	typing := w.message(RoleBot, "")
	typing.Typing = true

	w.mu.Lock()
	w.messages = append(w.messages, w.message(RoleUser, text), typing)
	w.mu.Unlock()

	err := w.sleep(ctx, w.ThinkingDelay())
	w.removeMessage(typing.ID)
	if err != nil {
		return Message{}, err
	}

	reply := w.message(RoleBot, w.responder.Answer(text))
	w.mu.Lock()
	w.messages = append(w.messages, reply)
	w.mu.Unlock()
	return reply, nil
}

// SendSuggestion submits the i-th chip text.
func (w *Widget) SendSuggestion(ctx context.Context, i int) (Message, error) {
	if i < 0 || i >= len(Suggestions) {
		return Message{}, errors.New("chat: no such suggestion")
	}
	return w.Send(ctx, Suggestions[i])
}

func (w *Widget) removeMessage(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, m := range w.messages {
		if m.ID == id {
			w.messages = append(w.messages[:i], w.messages[i+1:]...)
			return
		}
	}
}

func (w *Widget) message(role Role, text string) Message {
	return Message{ID: uuid.NewString(), Role: role, Text: text, At: w.now()}
}
