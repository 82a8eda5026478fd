package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/sirupsen/logrus"
)

// ErrorReporter receives handler faults
type ErrorReporter interface {
	// Report records err. dc may be nil. When notifyUser is set the
	// originating channel is told that something went wrong.
	Report(ctx context.Context, err error, dc *Context, notifyUser bool) string
}

// LogReporter logs each fault under a fresh incident id and optionally
// mirrors it to an error channel.
type LogReporter struct {
	Conn           bot.Connection
	ErrorChannelID string
}

// NewLogReporter creates a reporter. errorChannelID may be empty.
func NewLogReporter(conn bot.Connection, errorChannelID string) *LogReporter {
	return &LogReporter{Conn: conn, ErrorChannelID: errorChannelID}
}

// Report implements ErrorReporter and returns the incident id
func (r *LogReporter) Report(_ context.Context, err error, dc *Context, notifyUser bool) string {
	incident := uuid.NewString()

	fields := logrus.Fields{
		"incident": incident,
		"error":    err,
	}
	if dc != nil {
		fields["channel"] = dc.ChannelID
		fields["guild"] = dc.GuildID
		if dc.User != nil {
			fields["user"] = dc.User.ID
		}
		if dc.Message != nil {
			fields["message_id"] = dc.Message.ID
		}
	}
	logger.WithFields(fields).Error("handler-error-reported")

	if r.Conn == nil {
		return incident
	}

	if r.ErrorChannelID != "" {
		_, sendErr := r.Conn.SendMessage(r.ErrorChannelID, bot.Content{Embed: &bot.Embed{
			Title:       "Handler error",
			Description: fmt.Sprintf("```\n%v\n```", err),
			Color:       0xE74C3C,
			Footer:      "incident " + incident,
		}})
		if sendErr != nil {
			logger.WithFields(logrus.Fields{
				"incident": incident,
				"error":    sendErr,
			}).Debug("failed-to-post-error-report")
		}
	}

	if notifyUser && dc != nil && dc.ChannelID != "" {
		_, sendErr := r.Conn.SendMessage(dc.ChannelID, bot.Content{
			Text: fmt.Sprintf("Sorry, something went wrong. The error was reported as incident `%s`.", incident[:8]),
		})
		if sendErr != nil {
			logger.WithFields(logrus.Fields{
				"incident": incident,
				"error":    sendErr,
			}).Debug("failed-to-notify-user-of-error")
		}
	}
	return incident
}
