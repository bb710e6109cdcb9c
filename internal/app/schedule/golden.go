package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/notifier"
)

// Notification colors (24-bit RGB).
const (
	colorGold = 0xFACC15
	colorRed  = 0xEF4444
)

func formatDay(d domain.Day) string {
	return d.Time().Format("Monday, January 2")
}

func confirmedMessage(day domain.Day, startHour, runLength int, roster []string, appURL string, at time.Time) notifier.Message {
	list := "No players found"
	if len(roster) > 0 {
		b := strings.Builder{}
		for i, name := range roster {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("• ")
			b.WriteString(name)
		}
		list = b.String()
	}

	return notifier.Message{
		Title:       fmt.Sprintf("%dh match confirmed!", runLength),
		Description: fmt.Sprintf("%d consecutive slots are full (%dh - %dh)!", runLength, startHour, startHour+runLength),
		Color:       colorGold,
		URL:         appURL,
		Fields: []notifier.Field{
			{Name: "Date", Value: formatDay(day), Inline: true},
			{Name: "Hours", Value: fmt.Sprintf("%dh - %dh", startHour, startHour+runLength), Inline: true},
			{Name: "Players in", Value: list},
			{Name: "Join", Value: appURL},
		},
		Footer:    "Pickup Planner • Golden slot",
		Timestamp: at,
	}
}

func revokedMessage(day domain.Day, startHour, runLength, brokenHour int, playerName, appURL string, at time.Time) notifier.Message {
	return notifier.Message{
		Title: fmt.Sprintf("Withdrawal broke the %dh match!", runLength),
		Description: fmt.Sprintf("%s withdrew from the %dh slot, breaking the %dh session (%dh - %dh).",
			playerName, brokenHour, runLength, startHour, startHour+runLength),
		Color: colorRed,
		URL:   appURL,
		Fields: []notifier.Field{
			{Name: "Date", Value: formatDay(day), Inline: true},
			{Name: "Affected session", Value: fmt.Sprintf("%dh - %dh", startHour, startHour+runLength), Inline: true},
			{Name: "Status", Value: "Confirmation revoked."},
			{Name: "Rebuild the squad", Value: appURL},
		},
		Footer:    "Pickup Planner • Withdrawal",
		Timestamp: at,
	}
}
