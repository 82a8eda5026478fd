package views

import (
	"errors"
	"fmt"
	"strings"

	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/interactive"
	"github.com/keepmind9/shelfbot/internal/interactive/triggers"
	"github.com/keepmind9/shelfbot/internal/stats"
)

// DebugView shows connection and handler counters
type DebugView struct {
	source stats.Source
}

// NewDebugView creates a debug view reading from source
func NewDebugView(source stats.Source) *DebugView {
	return &DebugView{source: source}
}

// Render implements interactive.View
func (v *DebugView) Render(*interactive.Scope) (bot.Content, error) {
	if v.source == nil {
		return bot.Content{}, errors.New("no stats source")
	}
	s := v.source()

	var discord strings.Builder
	fmt.Fprintf(&discord, "Guilds: %d guilds\n", s.Guilds)
	fmt.Fprintf(&discord, "Latency: %dms\n", s.LatencyMS)
	fmt.Fprintf(&discord, "Handled messages: %d messages (%d received)\n", s.Messages.Handled, s.Messages.Received)
	fmt.Fprintf(&discord, "Handled reactions: %d reactions (%d received)\n", s.Reactions.Handled, s.Reactions.Received)
	fmt.Fprintf(&discord, "Interactive messages: %d messages\n", s.Interactive.Messages)
	fmt.Fprintf(&discord, "Interactive triggers: %d triggers", s.Interactive.Triggers)

	process := fmt.Sprintf("Heap: %dMiB\nSystem: %dMiB\nGoroutines: %d\nUptime: %s",
		s.Runtime.HeapAllocMiB, s.Runtime.SysMiB, s.Runtime.Goroutines, s.Uptime)

	return bot.Content{Embed: &bot.Embed{
		Title: "**shelfbot**: Debug information",
		Color: colorBlue,
		Fields: []bot.EmbedField{
			{Name: "Discord", Value: discord.String()},
			{Name: "Process", Value: process},
			{Name: "Runtime", Value: s.Runtime.GoVersion + " " + s.Runtime.Platform},
		},
	}}, nil
}

// Triggers implements interactive.View
func (v *DebugView) Triggers() []interactive.Trigger {
	return []interactive.Trigger{triggers.Delete{}}
}
