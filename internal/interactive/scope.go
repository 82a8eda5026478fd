package interactive

import (
	"context"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/dispatch"
)

// Scope carries everything a trigger or view needs for one run. It is
// created per run and closed when the run returns.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	Manager *Manager
	Conn    bot.Connection
	// Dispatch is the context of the event or command the run serves
	Dispatch *dispatch.Context
	// Reaction is set when the run was caused by a reaction
	Reaction *dispatch.ReactionContext
}

func newScope(ctx context.Context, m *Manager, dc *dispatch.Context, rc *dispatch.ReactionContext) *Scope {
	ctx, cancel := context.WithCancel(ctx)
	return &Scope{
		ctx:      ctx,
		cancel:   cancel,
		Manager:  m,
		Conn:     m.conn,
		Dispatch: dc,
		Reaction: rc,
	}
}

// Context is cancelled when the scope closes
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Close ends the scope
func (s *Scope) Close() {
	s.cancel()
}

// Forget unregisters an interactive message
func (s *Scope) Forget(messageID string) bool {
	_, ok := s.Manager.registry.Remove(messageID)
	return ok
}

// Edit re-renders view into the message tracked by state
func (s *Scope) Edit(state *State, view View) error {
	content, err := view.Render(s)
	if err != nil {
		return err
	}
	_, err = s.Conn.EditMessage(state.ChannelID, state.MessageID, content)
	return err
}
