package domain

import "time"

// Player is the domain representation of a player profile.
type Player struct {
	ID PlayerID

	Provider        Provider
	ProviderAccount ProviderAccountID

	// Name is the display name given by the identity provider.
	Name string
	// CustomName is an admin-assigned display name override; nil means unset.
	CustomName *string
	// AvatarURL is the provider avatar; nil means unset.
	AvatarURL *string

	IsBanned bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the name to show for the player. An admin-assigned
// custom name takes precedence over the provider-given name.
func (p Player) DisplayName() string {
	if p.CustomName != nil && *p.CustomName != "" {
		return *p.CustomName
	}
	if p.Name != "" {
		return p.Name
	}
	return string(p.ID)
}

// PlayerSummary is the minimal player shape embedded in rosters and grids.
type PlayerSummary struct {
	ID          PlayerID
	DisplayName string
	AvatarURL   *string
}
