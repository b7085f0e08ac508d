// Package notify maps engine outcomes onto chat messages. Formatting only;
// delivery belongs to whatever Sender the deployment wires in.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/fardannozami/ghostwatch/internal/calendar"
	"github.com/fardannozami/ghostwatch/internal/domain"
)

// Sender delivers a composed message to a chat. Implementations live at the
// edge (bot transport, console); the dispatcher never performs I/O itself.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type Dispatcher struct {
	cal *calendar.Calendar
}

func NewDispatcher(cal *calendar.Calendar) *Dispatcher {
	return &Dispatcher{cal: cal}
}

// Congratulation is the reply to a pair's first message of the day.
func (d *Dispatcher) Congratulation(name string, successStreak int) string {
	if successStreak > 1 {
		return fmt.Sprintf(
			"🎉 GHOST ACTIVITY DETECTED! Way to go, %s! You've materialized in the chat for the first time today.\nHaunting streak: %d days 👻🔥",
			name, successStreak,
		)
	}
	return fmt.Sprintf("👻 GHOST ACTIVITY DETECTED! %s has materialized in the chat for the first time today!", name)
}

// LapseNotice is emitted by the boundary sweep for a day without messages.
func (d *Dispatcher) LapseNotice(name string, failureStreak int) string {
	if failureStreak > 1 {
		return fmt.Sprintf(
			"👻 WHO YA GONNA CALL? NOT %s! This ghost has vanished from our radar!\n⚡ Ectoplasmic absence streak: %d days and counting! ⚡\nWe're picking up strong PKE readings of inactivity!",
			name, failureStreak,
		)
	}
	return fmt.Sprintf("👻 SPECTRAL ALERT! %s has crossed over to the invisible realm today! No messages detected on our PKE meter!", name)
}

// Report renders the streak headline plus the recent activity log, newest
// first. First-message times are shown in the reporting timezone.
func (d *Dispatcher) Report(name string, report *domain.Report) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("👻 ECTOPLASMIC ACTIVITY REPORT for %s:\n\n", name))

	switch {
	case report.SuccessStreak > 0:
		sb.WriteString(fmt.Sprintf("🔥 Current manifestation streak: %d %s\n", report.SuccessStreak, days(report.SuccessStreak)))
	case report.FailureStreak > 0:
		sb.WriteString(fmt.Sprintf("👻 Current vanishing streak: %d %s\n", report.FailureStreak, days(report.FailureStreak)))
	default:
		sb.WriteString("No paranormal activity streaks detected\n")
	}

	sb.WriteString("\n📝 Ghostly activity log:\n")
	for _, day := range report.History {
		status := "❌"
		if day.Messaged {
			status = "✅"
		}
		sb.WriteString(fmt.Sprintf("%s %s", status, d.cal.FormatDate(day.ActivityDate)))
		if day.Messaged && day.FirstMessageTime != nil {
			sb.WriteString(fmt.Sprintf(" (First message at %s)", day.FirstMessageTime.In(d.cal.Location()).Format("15:04:05")))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func days(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
