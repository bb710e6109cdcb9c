package calls

import (
	"fmt"
	"time"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/callrepo"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/notifier"
)

// Notification colors (24-bit RGB).
const (
	colorBlue = 0x3B82F6
	colorGray = 0x6B7280
)

func formatDay(d domain.Day) string {
	return d.Time().Format("Monday, January 2")
}

func spanLabel(hours []int) string {
	if len(hours) == 0 {
		return "-"
	}
	return fmt.Sprintf("%dh - %dh", hours[0], hours[len(hours)-1]+1)
}

func createdMessage(c callrepo.Call, creatorName string, span []int, appURL string, at time.Time) notifier.Message {
	fields := []notifier.Field{
		{Name: "Date", Value: formatDay(c.Day), Inline: true},
		{Name: "Hours", Value: spanLabel(span), Inline: true},
		{Name: "Location", Value: c.Location, Inline: true},
	}
	if c.Price != nil && *c.Price != "" {
		fields = append(fields, notifier.Field{Name: "Price", Value: *c.Price, Inline: true})
	}
	if c.Comment != nil && *c.Comment != "" {
		fields = append(fields, notifier.Field{Name: "Comment", Value: *c.Comment})
	}
	fields = append(fields, notifier.Field{Name: "Respond", Value: appURL})

	return notifier.Message{
		Title:       "New call!",
		Description: fmt.Sprintf("%s is calling a match at %s.", creatorName, c.Location),
		Color:       colorBlue,
		URL:         appURL,
		Fields:      fields,
		Footer:      "Pickup Planner • Call",
		Buttons: []notifier.Button{
			{Label: "I'm in", CustomID: "accept_call:" + string(c.ID), Style: notifier.ButtonPrimary},
			{Label: "Can't make it", CustomID: "decline_call:" + string(c.ID), Style: notifier.ButtonDanger},
		},
		Timestamp: at,
	}
}

func cancelledMessage(c callrepo.Call, span []int, appURL string, at time.Time) notifier.Message {
	return notifier.Message{
		Title:       "Call cancelled",
		Description: fmt.Sprintf("The call at %s on %s has been cancelled.", c.Location, formatDay(c.Day)),
		Color:       colorGray,
		URL:         appURL,
		Fields: []notifier.Field{
			{Name: "Date", Value: formatDay(c.Day), Inline: true},
			{Name: "Hours", Value: spanLabel(span), Inline: true},
		},
		Footer:    "Pickup Planner • Call",
		Timestamp: at,
	}
}
