package domain

// PlayerID is an internal identifier for a player record.
type PlayerID string

// CallID is an internal identifier for a scheduled call (match invitation).
type CallID string

// Provider names the external identity provider a player signed in with
// (e.g. "discord"). Its account id format is controlled by the provider and
// treated as opaque.
type Provider string

// ProviderAccountID is the player's account id at the identity provider.
type ProviderAccountID string
