// Package triggers holds the built-in reaction triggers.
package triggers

import (
	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/interactive"
	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/sirupsen/logrus"
)

const (
	DeleteEmoji = "\U0001F5D1"
	LeftEmoji   = "◀"
	RightEmoji  = "▶"
)

// Descriptors lists every trigger type the stateless table is built from
func Descriptors() []interactive.Descriptor {
	return []interactive.Descriptor{
		{Name: "delete", New: func() interactive.Trigger { return Delete{} }},
		{Name: "list-left", New: func() interactive.Trigger { return NewList(Left) }},
		{Name: "list-right", New: func() interactive.Trigger { return NewList(Right) }},
	}
}

// Delete removes the message it is attached to
type Delete struct{}

func (Delete) Emoji() string         { return DeleteEmoji }
func (Delete) CanRunStateless() bool { return true }

// Run deletes the message on reaction add. Removing the reaction does nothing.
func (Delete) Run(scope *interactive.Scope, state *interactive.State) (bool, error) {
	rc := scope.Reaction
	if rc == nil || rc.Event != bot.ReactionAdd {
		return false, nil
	}
	if state != nil {
		scope.Forget(state.MessageID)
	}
	if err := scope.Conn.DeleteMessage(rc.Reaction.ChannelID, rc.Reaction.MessageID); err != nil {
		logger.WithFields(logrus.Fields{
			"message_id": rc.Reaction.MessageID,
			"error":      err,
		}).Debug("failed-to-delete-interactive-message")
	}
	return true, nil
}

// Direction is the way a List trigger pages
type Direction int

const (
	Left Direction = iota
	Right
)

// List pages a Pager view. Both adding and removing the reaction turn the
// page, so users can keep clicking the same button.
type List struct {
	dir Direction
}

// NewList returns a paging trigger
func NewList(dir Direction) *List {
	return &List{dir: dir}
}

func (l *List) Emoji() string {
	if l.dir == Left {
		return LeftEmoji
	}
	return RightEmoji
}

func (l *List) CanRunStateless() bool { return false }

// Run moves the page and re-renders. Paging past either end is a no-op.
func (l *List) Run(scope *interactive.Scope, state *interactive.State) (bool, error) {
	if state == nil {
		return false, nil
	}
	pager, ok := state.View.(interactive.Pager)
	if !ok {
		return false, nil
	}

	delta := 1
	if l.dir == Left {
		delta = -1
	}
	if !pager.Move(delta) {
		return true, nil
	}

	if err := scope.Edit(state, pager); err != nil {
		logger.WithFields(logrus.Fields{
			"message_id": state.MessageID,
			"error":      err,
		}).Debug("failed-to-edit-interactive-message")
	}
	return true, nil
}
