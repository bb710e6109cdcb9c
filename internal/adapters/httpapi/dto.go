package httpapi

import (
	"sort"

	"github.com/oapi-codegen/nullable"
	"github.com/oapi-codegen/runtime/types"

	"github.com/fivesquad/pickup-planner-api/internal/app/calls"
	"github.com/fivesquad/pickup-planner-api/internal/app/schedule"
	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/playerrepo"
)

func toDay(d types.Date) domain.Day {
	return domain.DayOf(d.Time)
}

func fromDay(d domain.Day) types.Date {
	return types.Date{Time: d.Time()}
}

type playerSummaryDTO struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

func toPlayerSummaryDTO(p domain.PlayerSummary) playerSummaryDTO {
	return playerSummaryDTO{ID: string(p.ID), DisplayName: p.DisplayName, AvatarURL: p.AvatarURL}
}

func toPlayerSummaryDTOs(ps []domain.PlayerSummary) []playerSummaryDTO {
	out := make([]playerSummaryDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPlayerSummaryDTO(p))
	}
	return out
}

type playerDTO struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Name        string  `json:"name"`
	CustomName  *string `json:"customName,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	IsBanned    bool    `json:"isBanned"`
	IsAdmin     bool    `json:"isAdmin"`
}

func toPlayerDTO(p playerrepo.Player, isAdmin bool) playerDTO {
	d := p.Domain()
	return playerDTO{
		ID:          string(p.ID),
		DisplayName: d.DisplayName(),
		Name:        p.Name,
		CustomName:  p.CustomName,
		AvatarURL:   p.AvatarURL,
		IsBanned:    p.IsBanned,
		IsAdmin:     isAdmin,
	}
}

type toggleRequest struct {
	Date types.Date `json:"date"`
	Hour int        `json:"hour"`
}

type toggleResponse struct {
	Removed bool `json:"removed"`
}

type batchChangeDTO struct {
	Date      types.Date `json:"date"`
	Hour      int        `json:"hour"`
	Available bool       `json:"available"`
}

type batchRequest struct {
	Changes []batchChangeDTO `json:"changes"`
}

type batchResponse struct {
	Applied int `json:"applied"`
}

type slotDTO struct {
	Date    types.Date         `json:"date"`
	Hour    int                `json:"hour"`
	Count   int                `json:"count"`
	Players []playerSummaryDTO `json:"players"`
}

type mySlotDTO struct {
	Date types.Date `json:"date"`
	Hour int        `json:"hour"`
}

type gridResponse struct {
	MySlots []mySlotDTO `json:"mySlots"`
	Slots   []slotDTO   `json:"slots"`
}

func toGridResponse(g schedule.Grid) gridResponse {
	resp := gridResponse{MySlots: make([]mySlotDTO, 0, len(g.MySlots)), Slots: make([]slotDTO, 0, len(g.Slots))}
	for _, k := range g.MySlots {
		resp.MySlots = append(resp.MySlots, mySlotDTO{Date: fromDay(k.Day), Hour: k.Hour})
	}
	for _, k := range sortedSlotKeys(g.Slots) {
		detail := g.Slots[k]
		resp.Slots = append(resp.Slots, slotDTO{
			Date:    fromDay(k.Day),
			Hour:    k.Hour,
			Count:   detail.Count,
			Players: toPlayerSummaryDTOs(detail.Players),
		})
	}
	return resp
}

func sortedSlotKeys(m map[domain.SlotKey]schedule.SlotDetail) []domain.SlotKey {
	keys := make([]domain.SlotKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return slotKeyLess(keys[i], keys[j]) })
	return keys
}

func slotKeyLess(a, b domain.SlotKey) bool {
	if a.Day != b.Day {
		return a.Day.Before(b.Day)
	}
	return a.Hour < b.Hour
}

type createCallRequest struct {
	Date            types.Date `json:"date"`
	StartHour       int        `json:"startHour"`
	Location        string     `json:"location"`
	DurationMinutes int        `json:"durationMinutes"`
	Price           *string    `json:"price,omitempty"`
	Comment         *string    `json:"comment,omitempty"`
}

type callResponseDTO struct {
	Changed bool   `json:"changed"`
	Status  string `json:"status"`
}

type respondRequest struct {
	Status string `json:"status"`
}

type callDTO struct {
	ID              string             `json:"id"`
	Creator         playerSummaryDTO   `json:"creator"`
	Date            types.Date         `json:"date"`
	StartHour       int                `json:"startHour"`
	Location        string             `json:"location"`
	DurationMinutes int                `json:"durationMinutes"`
	SpanHours       []int              `json:"spanHours"`
	Price           *string            `json:"price,omitempty"`
	Comment         *string            `json:"comment,omitempty"`
	Accepted        []playerSummaryDTO `json:"accepted"`
	Declined        []playerSummaryDTO `json:"declined"`
}

func toCallDTO(d calls.CallDetails) callDTO {
	return callDTO{
		ID:              string(d.ID),
		Creator:         toPlayerSummaryDTO(d.Creator),
		Date:            fromDay(d.Day),
		StartHour:       d.StartHour,
		Location:        d.Location,
		DurationMinutes: d.DurationMinutes,
		SpanHours:       d.SpanHours,
		Price:           d.Price,
		Comment:         d.Comment,
		Accepted:        toPlayerSummaryDTOs(d.Roster.Accepted),
		Declined:        toPlayerSummaryDTOs(d.Roster.Declined),
	}
}

type adminPlayerPatch struct {
	// CustomName distinguishes "absent" from "null": null clears the custom
	// name, a value replaces it.
	CustomName nullable.Nullable[string] `json:"customName"`
	Banned     *bool                     `json:"banned"`
}

type reminderResponse struct {
	Outcome   string      `json:"outcome"`
	Date      *types.Date `json:"date,omitempty"`
	StartHour *int        `json:"startHour,omitempty"`
	Count     *int        `json:"count,omitempty"`
	Missing   *int        `json:"missing,omitempty"`
}
