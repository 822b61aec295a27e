package session

import (
	"fmt"
	"strconv"
)

// GameMode identifies which game a hosted session runs.
type GameMode int

const (
	// ModePlatformJumper is the cooperative platform-jumping game.
	ModePlatformJumper GameMode = iota
	// ModeVehicleRace is the vehicle game.
	ModeVehicleRace
)

// DefaultGameMode is used whenever an advertised mode cannot be read.
const DefaultGameMode = ModePlatformJumper

// Valid reports whether m is a known game mode.
func (m GameMode) Valid() bool {
	return m == ModePlatformJumper || m == ModeVehicleRace
}

// String returns the stable identifier advertised for the mode.
func (m GameMode) String() string {
	switch m {
	case ModePlatformJumper:
		return "platform_jumper"
	case ModeVehicleRace:
		return "vehicle_race"
	default:
		return fmt.Sprintf("mode_%d", int(m))
	}
}

// ParseGameMode reads an advertised game-mode value. Both the numeric index
// and the String form are accepted.
//
// Postcondition: Returns a valid GameMode, or an error for unknown input.
func ParseGameMode(s string) (GameMode, error) {
	if n, err := strconv.Atoi(s); err == nil {
		m := GameMode(n)
		if !m.Valid() {
			return 0, fmt.Errorf("game mode index %d out of range", n)
		}
		return m, nil
	}
	for _, m := range []GameMode{ModePlatformJumper, ModeVehicleRace} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown game mode %q", s)
}

// Advertised settings keys. The host display name key is configurable; these
// defaults match the shipped configuration.
const (
	SettingHostName = "SessionHostName"
	SettingGameMode = "GameMode"
)

// ServerEntry is one row of the server browser. It is derived from a search
// result each time a search completes and never changes afterwards.
//
// Invariant: 0 <= CurrentPlayers <= MaxPlayers.
type ServerEntry struct {
	Name           string
	MaxPlayers     int
	CurrentPlayers int
	HostedBy       string
	GameMode       GameMode
}

// SessionConfig is the set of settings submitted with a create request.
// It is built once per host request and is not modified after submission.
type SessionConfig struct {
	// IsLocalOnly marks a LAN session; set when the provider is the NULL subsystem.
	IsLocalOnly bool
	// MaxPublicSlots is the number of public connections.
	MaxPublicSlots int
	// Advertise publishes the session to searches.
	Advertise bool
	// UsesPresence restricts discovery to presence searches.
	UsesPresence bool
	// GameMode is advertised under SettingGameMode.
	GameMode GameMode
	// HostDisplayName is advertised under the host-name key.
	HostDisplayName string
}

// DefaultPublicSlots is the number of public connections a hosted session offers.
const DefaultPublicSlots = 5

// SearchResult is a raw session found by the provider.
type SearchResult struct {
	// SessionID is the provider's handle for the session.
	SessionID string
	// OwningUserName is the account that created the session.
	OwningUserName string
	// MaxPublicSlots is the advertised number of public connections.
	MaxPublicSlots int
	// OpenPublicSlots is the number of public connections still free.
	OpenPublicSlots int
	// Settings holds the advertised key/value settings.
	Settings map[string]string
}

// Query describes a find request.
type Query struct {
	// MaxResults bounds the number of results returned.
	MaxResults int
	// Presence restricts results to presence-advertised sessions.
	Presence bool
	// LAN restricts results to local sessions.
	LAN bool
}

// ActiveSession identifies the one session this client has hosted or joined.
type ActiveSession struct {
	// Name is the well-known local session name.
	Name string
	// Handle is the provider's session id.
	Handle string
	// ConnectAddress is the resolved address after a successful join; empty when hosting.
	ConnectAddress string
	// IsHost is true when this client created the session.
	IsHost bool
}

// JoinResult is the outcome of a join request.
type JoinResult int

const (
	// JoinSuccess means the client is now a member of the session.
	JoinSuccess JoinResult = iota
	// JoinSessionFull means no public slot was open.
	JoinSessionFull
	// JoinSessionNotFound means the session ended after it was listed.
	JoinSessionNotFound
	// JoinAddressUnresolvable means the join succeeded but no connect address
	// could be resolved for it.
	JoinAddressUnresolvable
	// JoinAlreadyInSession means the client already holds a session under the
	// well-known name.
	JoinAlreadyInSession
	// JoinUnknown covers any other provider failure.
	JoinUnknown
)

// String returns the outcome identifier.
func (r JoinResult) String() string {
	switch r {
	case JoinSuccess:
		return "Success"
	case JoinSessionFull:
		return "SessionFull"
	case JoinSessionNotFound:
		return "SessionNotFound"
	case JoinAddressUnresolvable:
		return "AddressUnresolvable"
	case JoinAlreadyInSession:
		return "AlreadyInSession"
	default:
		return "Unknown"
	}
}

// Message returns the human-readable reason shown to the player.
func (r JoinResult) Message() string {
	switch r {
	case JoinSuccess:
		return "Joined the session"
	case JoinSessionFull:
		return "The session is full"
	case JoinSessionNotFound:
		return "The session no longer exists"
	case JoinAddressUnresolvable:
		return "Could not resolve the session address"
	case JoinAlreadyInSession:
		return "You are already in a session"
	default:
		return "Unknown error while joining the session"
	}
}
