// Package chat answers visitor questions from a fixed keyword table.
package chat

import (
	"math/rand"
	"regexp"
	"strings"
)

// Reply topics that are not rows of the table.
const (
	TopicGreeting = "greeting"
	TopicFallback = "fallback"
)

var greetingPattern = regexp.MustCompile(`^(hi|hello|hey|sup|yo)\b`)

// Rand yields values in [0, 1).
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Reply is an answer together with the topic that produced it.
type Reply struct {
	Answer string `json:"answer"`
	Topic  string `json:"topic"`
}

// Responder matches text against the keyword table. It is safe for
// concurrent use when its Rand is.
type Responder struct {
	topics    []Topic
	greetings []string
	rand      Rand
}

// NewResponder creates a responder over the built-in table. nil selects the
// process-wide random source.
func NewResponder(r Rand) *Responder {
	if r == nil {
		r = globalRand{}
	}
	return &Responder{topics: Topics, greetings: Greetings, rand: r}
}

// Answer returns the reply text for userText.
func (r *Responder) Answer(userText string) string {
	return r.Reply(userText).Answer
}

// Reply returns the answer and the topic it came from.
func (r *Responder) Reply(userText string) Reply {
	text := strings.ToLower(strings.TrimSpace(userText))

	if greetingPattern.MatchString(text) {
		i := int(r.rand.Float64() * float64(len(r.greetings)))
		if i >= len(r.greetings) {
			i = len(r.greetings) - 1
		}
		return Reply{Answer: r.greetings[i], Topic: TopicGreeting}
	}

	if topic, ok := r.Match(text); ok {
		return Reply{Answer: topic.Answer, Topic: topic.Name}
	}
	return Reply{Answer: Fallback, Topic: TopicFallback}
}

// Match finds the topic with the strictly greatest keyword count in the
// already case-folded text. It reports false when nothing matches.
func (r *Responder) Match(text string) (Topic, bool) {
	var (
		best       Topic
		maxMatches int
	)
	for _, topic := range r.topics {
		if n := countKeywords(text, topic.Keywords); n > maxMatches {
			maxMatches = n
			best = topic
		}
	}
	return best, maxMatches > 0
}

func countKeywords(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
