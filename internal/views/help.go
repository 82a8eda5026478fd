// Package views renders the interactive messages behind the slash commands.
package views

import (
	"errors"
	"fmt"
	"sync"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/interactive"
	"github.com/keepmind9/shelfbot/internal/interactive/triggers"
)

// ErrNoSections is returned when rendering a help view without pages
var ErrNoSections = errors.New("help has no sections")

const (
	colorPurple = 0x9B59B6
	colorBlue   = 0x3498DB
)

// Section is one page of the help message
type Section struct {
	Title  string
	Fields []bot.EmbedField
}

// DefaultSections is the built-in help text
func DefaultSections() []Section {
	return []Section{
		{
			Title: "Documents",
			Fields: []bot.EmbedField{
				{Name: "Browsing", Value: "- `/help` shows this message\n- React with ◀ and ▶ to turn pages\n- React with 🗑 to remove a message"},
			},
		},
		{
			Title: "Collections",
			Fields: []bot.EmbedField{
				{Name: "Collections", Value: "Collections group documents you want to keep. They are stored per user."},
			},
		},
		{
			Title: "Options",
			Fields: []bot.EmbedField{
				{Name: "Server settings", Value: "Language and search filters are stored per server."},
			},
		},
		{
			Title: "Other",
			Fields: []bot.EmbedField{
				{Name: "Diagnostics", Value: "- `/debug` shows connection and handler counters"},
				{Name: "Limits", Value: "Commands are limited per user and per server each minute."},
			},
		},
	}
}

// HelpView is a paged help message
type HelpView struct {
	version  string
	sections []Section

	mu   sync.Mutex
	page int
}

// NewHelpView creates a help view starting at page (zero based, clamped)
func NewHelpView(version string, sections []Section, page int) *HelpView {
	if page < 0 {
		page = 0
	}
	if page >= len(sections) {
		page = len(sections) - 1
	}
	return &HelpView{version: version, sections: sections, page: page}
}

// Render implements interactive.View
func (v *HelpView) Render(*interactive.Scope) (bot.Content, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.sections) == 0 {
		return bot.Content{}, ErrNoSections
	}
	s := v.sections[v.page]
	return bot.Content{Embed: &bot.Embed{
		Title:       "**shelfbot**: " + s.Title,
		Description: "A bot for browsing and collecting documents.",
		Color:       colorPurple,
		Fields:      append([]bot.EmbedField(nil), s.Fields...),
		Footer:      fmt.Sprintf("v%s · page %d/%d", v.version, v.page+1, len(v.sections)),
	}}, nil
}

// Triggers implements interactive.View
func (v *HelpView) Triggers() []interactive.Trigger {
	return []interactive.Trigger{
		triggers.NewList(triggers.Left),
		triggers.NewList(triggers.Right),
		triggers.Delete{},
	}
}

// Move implements interactive.Pager
func (v *HelpView) Move(delta int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := v.page + delta
	if next < 0 || next >= len(v.sections) {
		return false
	}
	v.page = next
	return true
}

// Page returns the current zero-based page
func (v *HelpView) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}
