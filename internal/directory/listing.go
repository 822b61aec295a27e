// Package directory is the registry of advertised sessions. Hosts create and
// destroy listings; players find them and claim or release public slots.
package directory

import (
	"errors"
	"time"
)

// DefaultMaxResults bounds a Find with no explicit limit.
const DefaultMaxResults = 100

// Advert is what a host submits when creating a listing.
type Advert struct {
	// OwnerName is the account that hosts the session.
	OwnerName string
	// MaxPublicSlots is the number of public connections offered.
	MaxPublicSlots int
	// LAN marks a local-network session.
	LAN bool
	// Presence restricts discovery to presence searches.
	Presence bool
	// Advertise publishes the listing to Find.
	Advertise bool
	// Address is the connect address joiners travel to.
	Address string
	// Settings holds advertised key/value settings.
	Settings map[string]string
}

// Listing is one stored session.
//
// Invariant: 0 <= OpenPublicSlots <= MaxPublicSlots.
type Listing struct {
	ID              string
	OwnerName       string
	MaxPublicSlots  int
	OpenPublicSlots int
	LAN             bool
	Presence        bool
	Advertised      bool
	Address         string
	Settings        map[string]string
	// TokenHash is the bcrypt hash of the host token; never sent to clients.
	TokenHash string
	CreatedAt time.Time
}

// Query filters Find results.
type Query struct {
	// MaxResults bounds the result count; <= 0 means DefaultMaxResults.
	MaxResults int
	// LAN selects local-network listings only; false selects the rest.
	LAN bool
	// Presence selects presence listings only.
	Presence bool
}

// Errors returned by the registry and its stores.
var (
	ErrListingNotFound  = errors.New("session listing not found")
	ErrListingExists    = errors.New("session listing already exists")
	ErrSessionFull      = errors.New("session is full")
	ErrAlreadyInSession = errors.New("player already in session")
	ErrInvalidHostToken = errors.New("invalid host token")
	ErrInvalidAdvert    = errors.New("invalid session advert")
)

// cloneSettings copies settings so stored listings never alias caller maps.
func cloneSettings(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// matches reports whether l is returned for q.
func (l Listing) matches(q Query) bool {
	if !l.Advertised {
		return false
	}
	if l.LAN != q.LAN {
		return false
	}
	if q.Presence && !l.Presence {
		return false
	}
	return true
}
