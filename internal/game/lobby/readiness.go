// Package lobby tracks the players connected to a hosted session and their
// readiness to start the match.
package lobby

import (
	"errors"
	"fmt"
	"sync"
)

// Status is a player's readiness as displayed by every observer.
type Status int

const (
	// NotEnoughPlayers is forced while the lobby is below its minimum size.
	NotEnoughPlayers Status = iota
	// NotReady is a player's choice to wait.
	NotReady
	// Ready is a player's choice to start.
	Ready
)

// String returns the label shown on the lobby HUD.
func (s Status) String() string {
	switch s {
	case NotEnoughPlayers:
		return "Not Enough Players"
	case NotReady:
		return "Not Ready"
	case Ready:
		return "Ready"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Errors returned by Roster membership changes.
var (
	ErrPlayerInLobby    = errors.New("player already in lobby")
	ErrPlayerNotInLobby = errors.New("player not in lobby")
)

// Update is pushed to subscribers whenever a player's displayed status changes.
type Update struct {
	PlayerID string
	Status   Status
}

// Roster holds the connected players of one lobby.
//
// Invariant: while Count() < MinPlayers every player's status is NotEnoughPlayers.
// Invariant: a player's own choice is NotReady or Ready, never NotEnoughPlayers.
//
// All methods are safe for concurrent use.
type Roster struct {
	minPlayers int

	mu          sync.Mutex
	order       []string
	choices     map[string]Status
	subscribers map[chan<- Update]struct{}
}

// NewRoster creates an empty Roster.
//
// Precondition: minPlayers >= 1.
// Postcondition: Returns a Roster with no players.
func NewRoster(minPlayers int) *Roster {
	if minPlayers < 1 {
		minPlayers = 1
	}
	return &Roster{
		minPlayers:  minPlayers,
		choices:     make(map[string]Status),
		subscribers: make(map[chan<- Update]struct{}),
	}
}

// MinPlayers returns the threshold below which nobody can be ready.
func (r *Roster) MinPlayers() int {
	return r.minPlayers
}

// Subscribe registers ch to receive status updates.
// If ch is full, the update is dropped for that subscriber (non-blocking).
//
// Precondition: ch must not be nil.
func (r *Roster) Subscribe(ch chan<- Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[ch] = struct{}{}
}

// Unsubscribe removes ch from the subscriber list.
func (r *Roster) Unsubscribe(ch chan<- Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, ch)
}

// Join adds a player, who starts NotReady, and recomputes everyone's status.
//
// Precondition: playerID must be non-empty.
// Postcondition: Returns an error if the player is already present.
func (r *Roster) Join(playerID string) error {
	r.mu.Lock()
	if _, ok := r.choices[playerID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrPlayerInLobby, playerID)
	}
	before := r.snapshotLocked()
	r.choices[playerID] = NotReady
	r.order = append(r.order, playerID)
	updates := r.diffLocked(before)
	r.mu.Unlock()

	r.publish(updates)
	return nil
}

// Leave removes a player and recomputes everyone's status. Dropping below
// the minimum resets every remaining player's choice to NotReady.
//
// Postcondition: Returns an error if the player is not present.
func (r *Roster) Leave(playerID string) error {
	r.mu.Lock()
	if _, ok := r.choices[playerID]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrPlayerNotInLobby, playerID)
	}
	before := r.snapshotLocked()
	delete(r.choices, playerID)
	for i, id := range r.order {
		if id == playerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	delete(before, playerID)
	if len(r.order) < r.minPlayers {
		for id := range r.choices {
			r.choices[id] = NotReady
		}
	}
	updates := r.diffLocked(before)
	r.mu.Unlock()

	r.publish(updates)
	return nil
}

// Toggle flips the player's choice between NotReady and Ready. Below the
// minimum the forced NotEnoughPlayers status cannot be changed and Toggle
// has no effect.
//
// Postcondition: Returns the player's displayed status after the toggle, or
// an error if the player is not present.
func (r *Roster) Toggle(playerID string) (Status, error) {
	r.mu.Lock()
	choice, ok := r.choices[playerID]
	if !ok {
		r.mu.Unlock()
		return 0, fmt.Errorf("player %q not in lobby", playerID)
	}
	if len(r.order) < r.minPlayers {
		r.mu.Unlock()
		return NotEnoughPlayers, nil
	}
	next := Ready
	if choice == Ready {
		next = NotReady
	}
	r.choices[playerID] = next
	r.mu.Unlock()

	r.publish([]Update{{PlayerID: playerID, Status: next}})
	return next, nil
}

// Status returns the player's displayed status.
//
// Postcondition: Returns (status, true) if the player is present, or (0, false).
func (r *Roster) Status(playerID string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	choice, ok := r.choices[playerID]
	if !ok {
		return 0, false
	}
	return r.displayedLocked(choice), true
}

// Count returns the number of connected players.
func (r *Roster) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// AllReady reports whether the lobby is at or above its minimum and every
// player has chosen Ready.
func (r *Roster) AllReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) < r.minPlayers {
		return false
	}
	for _, c := range r.choices {
		if c != Ready {
			return false
		}
	}
	return true
}

func (r *Roster) displayedLocked(choice Status) Status {
	if len(r.order) < r.minPlayers {
		return NotEnoughPlayers
	}
	return choice
}

func (r *Roster) snapshotLocked() map[string]Status {
	snap := make(map[string]Status, len(r.choices))
	for id, c := range r.choices {
		snap[id] = r.displayedLocked(c)
	}
	return snap
}

// diffLocked returns updates for every present player whose displayed status
// differs from before, in join order. Players absent from before always get one.
func (r *Roster) diffLocked(before map[string]Status) []Update {
	var updates []Update
	for _, id := range r.order {
		now := r.displayedLocked(r.choices[id])
		if prev, ok := before[id]; ok && prev == now {
			continue
		}
		updates = append(updates, Update{PlayerID: id, Status: now})
	}
	return updates
}

func (r *Roster) publish(updates []Update) {
	if len(updates) == 0 {
		return
	}
	r.mu.Lock()
	subs := make([]chan<- Update, 0, len(r.subscribers))
	for ch := range r.subscribers {
		subs = append(subs, ch)
	}
	r.mu.Unlock()
	for _, u := range updates {
		for _, ch := range subs {
			select {
			case ch <- u:
			default:
			}
		}
	}
}
