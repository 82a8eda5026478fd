// Package interactive turns bot messages into small reaction-driven UIs.
//
// A View is rendered into a message and lists the Triggers its reactions
// map to. When any trigger needs per-message state the message is registered
// in the Registry until it is deleted, a trigger removes it, or its TTL
// elapses. Stateless triggers keep working on any bot message carrying the
// matching bot-placed reaction, even after a restart.
package interactive

import (
	"errors"
	"fmt"
	"sort"

	"github.com/keepmind9/shelfbot/internal/bot"
)

var (
	// ErrDuplicateTrigger is returned when two stateless triggers share an emoji
	ErrDuplicateTrigger = errors.New("duplicate stateless trigger emoji")
	// ErrRenderFailed wraps view rendering failures in Publish
	ErrRenderFailed = errors.New("failed to render view")
	// ErrQueueClosed is returned by EnqueueReactions after Close
	ErrQueueClosed = errors.New("reaction queue closed")
)

// Trigger reacts to one emoji on an interactive message
type Trigger interface {
	Emoji() string
	// CanRunStateless reports whether the trigger works without a
	// registered State, in which case Run receives a nil state.
	CanRunStateless() bool
	// Run executes the trigger and reports whether the event was handled
	Run(scope *Scope, state *State) (bool, error)
}

// View renders an interactive message
type View interface {
	Render(scope *Scope) (bot.Content, error)
	// Triggers returns fresh trigger instances for one message
	Triggers() []Trigger
}

// Pager is a View with pages. Implementations must be safe for concurrent use.
type Pager interface {
	View
	// Move shifts the current page by delta and reports false, leaving the
	// page unchanged, when that would leave the valid range.
	Move(delta int) bool
}

// Disposer is implemented by views holding resources released with their state
type Disposer interface {
	Dispose()
}

// Descriptor registers a trigger type
type Descriptor struct {
	Name string
	New  func() Trigger
}

// StatelessTable maps an emoji to the stateless trigger answering it.
// It is read-only after construction.
type StatelessTable struct {
	byEmoji map[string]Descriptor
}

// NewStatelessTable builds the table from descriptors. Each factory is
// called once to read the trigger's emoji and capability; descriptors that
// cannot run stateless are skipped.
func NewStatelessTable(descriptors []Descriptor) (*StatelessTable, error) {
	t := &StatelessTable{byEmoji: make(map[string]Descriptor)}
	for _, d := range descriptors {
		if d.New == nil {
			return nil, fmt.Errorf("trigger %q has no factory", d.Name)
		}
		sample := d.New()
		if !sample.CanRunStateless() {
			continue
		}
		emoji := sample.Emoji()
		if prev, ok := t.byEmoji[emoji]; ok {
			return nil, fmt.Errorf("%w: %s used by %q and %q", ErrDuplicateTrigger, emoji, prev.Name, d.Name)
		}
		t.byEmoji[emoji] = d
	}
	return t, nil
}

// Resolve returns a freshly constructed trigger for emoji
func (t *StatelessTable) Resolve(emoji string) (Trigger, bool) {
	d, ok := t.byEmoji[emoji]
	if !ok {
		return nil, false
	}
	return d.New(), true
}

// Len returns the number of stateless triggers
func (t *StatelessTable) Len() int {
	return len(t.byEmoji)
}

// Emojis returns the registered emoji in sorted order
func (t *StatelessTable) Emojis() []string {
	out := make([]string, 0, len(t.byEmoji))
	for e := range t.byEmoji {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
