package interactive

import (
	"sync"
	"time"
)

// State is the live state of one interactive message
type State struct {
	MessageID string
	ChannelID string
	View      View

	triggers []Trigger
	byEmoji  map[string]Trigger

	mu       sync.Mutex
	timer    *time.Timer
	disposed bool
}

// NewState binds triggers to a sent message. When two triggers share an
// emoji the first one wins.
func NewState(channelID, messageID string, view View, triggers []Trigger) *State {
	s := &State{
		MessageID: messageID,
		ChannelID: channelID,
		View:      view,
		byEmoji:   make(map[string]Trigger, len(triggers)),
	}
	for _, t := range triggers {
		if _, dup := s.byEmoji[t.Emoji()]; dup {
			continue
		}
		s.byEmoji[t.Emoji()] = t
		s.triggers = append(s.triggers, t)
	}
	return s
}

// Trigger returns the trigger bound to emoji
func (s *State) Trigger(emoji string) (Trigger, bool) {
	t, ok := s.byEmoji[emoji]
	return t, ok
}

// Triggers returns the triggers in insertion order
func (s *State) Triggers() []Trigger {
	return append([]Trigger(nil), s.triggers...)
}

// Emojis returns the trigger emoji in insertion order
func (s *State) Emojis() []string {
	out := make([]string, len(s.triggers))
	for i, t := range s.triggers {
		out[i] = t.Emoji()
	}
	return out
}

// Disposed reports whether the state has been released
func (s *State) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *State) setTimer(t *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		t.Stop()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = t
}

// dispose stops the eviction timer and releases the view. It runs once.
func (s *State) dispose() bool {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false
	}
	s.disposed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	if d, ok := s.View.(Disposer); ok {
		d.Dispose()
	}
	return true
}
