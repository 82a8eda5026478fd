package interactive

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/sirupsen/logrus"
)

// Registry holds the live interactive messages keyed by message id
type Registry struct {
	states   sync.Map // message id -> *State
	live     atomic.Int64
	triggers atomic.Int64
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Publish registers state for ttl. A different state already registered
// under the same message id is replaced and disposed. Publishing the same
// state again only restarts its ttl.
func (r *Registry) Publish(state *State, ttl time.Duration) {
	r.live.Add(1)
	r.triggers.Add(int64(len(state.triggers)))
	if old, loaded := r.states.Swap(state.MessageID, state); loaded {
		if old.(*State) == state {
			r.live.Add(-1)
			r.triggers.Add(-int64(len(state.triggers)))
		} else {
			r.release(old.(*State))
		}
	}

	state.setTimer(time.AfterFunc(ttl, func() { r.expire(state) }))
}

// Get returns the state registered for messageID
func (r *Registry) Get(messageID string) (*State, bool) {
	v, ok := r.states.Load(messageID)
	if !ok {
		return nil, false
	}
	return v.(*State), true
}

// Resolve returns the trigger bound to emoji on a registered message
func (r *Registry) Resolve(messageID, emoji string) (Trigger, bool) {
	state, ok := r.Get(messageID)
	if !ok {
		return nil, false
	}
	return state.Trigger(emoji)
}

// Remove unregisters and disposes the state for messageID. Of several
// concurrent callers exactly one gets the state.
func (r *Registry) Remove(messageID string) (*State, bool) {
	v, ok := r.states.LoadAndDelete(messageID)
	if !ok {
		return nil, false
	}
	state := v.(*State)
	r.release(state)
	return state, true
}

// expire evicts state unless it has been replaced or removed since
func (r *Registry) expire(state *State) {
	if !r.states.CompareAndDelete(state.MessageID, state) {
		return
	}
	r.release(state)
	logger.WithFields(logrus.Fields{
		"message_id": state.MessageID,
		"channel":    state.ChannelID,
	}).Debug("interactive-message-expired")
}

func (r *Registry) release(state *State) {
	if state.dispose() {
		r.live.Add(-1)
		r.triggers.Add(-int64(len(state.triggers)))
	}
}

// Len returns the number of live interactive messages
func (r *Registry) Len() int64 {
	return r.live.Load()
}

// TriggerCount returns the number of triggers across live messages
func (r *Registry) TriggerCount() int64 {
	return r.triggers.Load()
}
