// Package animator decides when page sections fade in as the visitor scrolls.
//
// Elements are plain rectangles in page coordinates. Each call to Observe
// intersects them with the viewport, minus a bottom margin, and reports the
// ones that crossed the threshold for the first time. A revealed element
// stays revealed.
package animator

import (
	"sync"
	"time"
)

// Defaults used by the site.
const (
	DefaultThreshold    = 0.1
	DefaultBottomMargin = 50.0
	StaggerStep         = 100 * time.Millisecond
)

// Rect is an axis-aligned box in page coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one fade-in target.
type Element struct {
	ID   string `json:"id"`
	Rect Rect   `json:"rect"`
}

// Viewport is the visible part of the page. Top is the scroll offset. A zero
// Width disables the horizontal test.
type Viewport struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
}

// Options tune the intersection test.
type Options struct {
	Threshold    float64 `mapstructure:"threshold"`
	BottomMargin float64 `mapstructure:"bottom_margin"`
}

// DefaultOptions returns the site's settings.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, BottomMargin: DefaultBottomMargin}
}

// Reveal reports an element becoming visible.
type Reveal struct {
	ID    string        `json:"id"`
	Delay time.Duration `json:"delay"`
	Ratio float64       `json:"ratio"`
}

type entry struct {
	Element
	delay time.Duration
}

// Animator tracks which registered elements have been revealed. It is safe
// for concurrent use.
type Animator struct {
	opts     Options
	elements []entry

	mu      sync.Mutex
	visible map[string]bool
}

// New registers elements in order. The n-th distinct element is delayed by
// n × StaggerStep. Later elements reusing an ID are ignored.
func New(opts Options, elements ...Element) *Animator {
	a := &Animator{opts: opts, visible: make(map[string]bool)}
	seen := make(map[string]bool, len(elements))
	for _, el := range elements {
		if seen[el.ID] {
			continue
		}
		seen[el.ID] = true
		a.elements = append(a.elements, entry{
			Element: el,
			delay:   time.Duration(len(a.elements)) * StaggerStep,
		})
	}
	return a
}

// Observe returns the elements that become visible in v, in registration
// order.
func (a *Animator) Observe(v Viewport) []Reveal {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []Reveal
	for _, e := range a.elements {
		if a.visible[e.ID] {
			continue
		}
		ratio, ok := Intersection(e.Rect, v, a.opts.BottomMargin)
		if !ok || ratio < a.opts.Threshold {
			continue
		}
		a.visible[e.ID] = true
		out = append(out, Reveal{ID: e.ID, Delay: e.delay, Ratio: ratio})
	}
	return out
}

// Visible reports whether id has been revealed.
func (a *Animator) Visible(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.visible[id]
}

// Delays returns the transition delay of every registered element.
func (a *Animator) Delays() map[string]time.Duration {
	out := make(map[string]time.Duration, len(a.elements))
	for _, e := range a.elements {
		out[e.ID] = e.delay
	}
	return out
}

// Pending returns the IDs not yet revealed, in registration order.
func (a *Animator) Pending() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []string
	for _, e := range a.elements {
		if !a.visible[e.ID] {
			out = append(out, e.ID)
		}
	}
	return out
}

// Intersection returns the fraction of r inside the viewport with its bottom
// edge raised by bottomMargin, and whether the two touch at all. An element
// with no area that touches the root counts as fully inside.
func Intersection(r Rect, v Viewport, bottomMargin float64) (float64, bool) {
	rootTop := v.Top
	rootBottom := v.Top + v.Height - bottomMargin
	if rootBottom < rootTop {
		rootBottom = rootTop
	}

	iy := overlap(r.Y, r.Y+r.Height, rootTop, rootBottom)
	if iy < 0 {
		return 0, false
	}
	ix := r.Width
	if v.Width > 0 {
		ix = overlap(r.X, r.X+r.Width, 0, v.Width)
		if ix < 0 {
			return 0, false
		}
	}

	area := r.Width * r.Height
	if area <= 0 {
		return 1, true
	}
	return ix * iy / area, true
}

// overlap is negative when the ranges are disjoint and zero when they only
// share an edge.
func overlap(a0, a1, b0, b1 float64) float64 {
	return min(a1, b1) - max(a0, b0)
}

// Step is one observation in a replayed scroll.
type Step struct {
	Scroll  float64  `json:"scroll"`
	Reveals []Reveal `json:"reveals"`
}

// Replay observes each scroll offset in turn with a fresh animator and
// returns the reveals each offset produced. Offsets that reveal nothing are
// kept so callers can line the result up with their input.
func Replay(opts Options, elements []Element, height, width float64, scrolls []float64) []Step {
	a := New(opts, elements...)
	steps := make([]Step, 0, len(scrolls))
	for _, top := range scrolls {
		steps = append(steps, Step{
			Scroll:  top,
			Reveals: a.Observe(Viewport{Top: top, Height: height, Width: width}),
		})
	}
	return steps
}
