package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Registry applies the directory rules on top of a Store.
//
// All methods are safe for concurrent use when the Store is.
type Registry struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	cost   int
}

// NewRegistry creates a Registry over store.
//
// Precondition: store and logger must be non-nil.
func NewRegistry(store Store, logger *zap.Logger) *Registry {
	return &Registry{store: store, logger: logger, now: time.Now, cost: bcrypt.DefaultCost}
}

// Create stores a new listing with every public slot open.
//
// Precondition: a.OwnerName must be non-empty; a.MaxPublicSlots must be > 0.
// Postcondition: Returns the listing and the plaintext host token required by
// Destroy, or ErrInvalidAdvert / a store error.
func (r *Registry) Create(ctx context.Context, a Advert) (Listing, string, error) {
	if a.OwnerName == "" {
		return Listing{}, "", fmt.Errorf("%w: owner name is empty", ErrInvalidAdvert)
	}
	if a.MaxPublicSlots <= 0 {
		return Listing{}, "", fmt.Errorf("%w: max public slots must be > 0, got %d", ErrInvalidAdvert, a.MaxPublicSlots)
	}

	token := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), r.cost)
	if err != nil {
		return Listing{}, "", fmt.Errorf("hashing host token: %w", err)
	}

	l := Listing{
		ID:              uuid.NewString(),
		OwnerName:       a.OwnerName,
		MaxPublicSlots:  a.MaxPublicSlots,
		OpenPublicSlots: a.MaxPublicSlots,
		LAN:             a.LAN,
		Presence:        a.Presence,
		Advertised:      a.Advertise,
		Address:         a.Address,
		Settings:        cloneSettings(a.Settings),
		TokenHash:       string(hash),
		CreatedAt:       r.now().UTC(),
	}
	if err := r.store.Insert(ctx, l); err != nil {
		return Listing{}, "", fmt.Errorf("storing listing: %w", err)
	}
	r.logger.Info("session listed",
		zap.String("session_id", l.ID),
		zap.String("owner", l.OwnerName),
		zap.Int("slots", l.MaxPublicSlots),
		zap.Bool("lan", l.LAN),
	)
	return l, token, nil
}

// Find returns advertised listings matching q, newest first.
//
// Postcondition: Returns at most q.MaxResults listings (DefaultMaxResults when unset).
func (r *Registry) Find(ctx context.Context, q Query) ([]Listing, error) {
	if q.MaxResults <= 0 {
		q.MaxResults = DefaultMaxResults
	}
	ls, err := r.store.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	r.logger.Debug("sessions found", zap.Int("results", len(ls)), zap.Bool("lan", q.LAN))
	return ls, nil
}

// Join claims one public slot in the listing for playerName.
//
// Postcondition: Returns the updated listing, or ErrListingNotFound,
// ErrAlreadyInSession when playerName hosts the listing, or ErrSessionFull.
func (r *Registry) Join(ctx context.Context, id, playerName string) (Listing, error) {
	l, err := r.store.Get(ctx, id)
	if err != nil {
		return Listing{}, err
	}
	if playerName != "" && playerName == l.OwnerName {
		return Listing{}, ErrAlreadyInSession
	}
	l, err = r.store.AdjustOpenSlots(ctx, id, -1)
	if err != nil {
		return Listing{}, err
	}
	r.logger.Info("slot claimed",
		zap.String("session_id", id),
		zap.String("player", playerName),
		zap.Int("open", l.OpenPublicSlots),
	)
	return l, nil
}

// Leave releases one public slot in the listing.
//
// Postcondition: Returns nil or ErrListingNotFound; open slots never exceed the maximum.
func (r *Registry) Leave(ctx context.Context, id string) error {
	l, err := r.store.AdjustOpenSlots(ctx, id, 1)
	if err != nil {
		return err
	}
	r.logger.Info("slot released", zap.String("session_id", id), zap.Int("open", l.OpenPublicSlots))
	return nil
}

// Destroy delists the session.
//
// Precondition: token is the host token returned by Create.
// Postcondition: Returns nil, ErrListingNotFound or ErrInvalidHostToken.
func (r *Registry) Destroy(ctx context.Context, id, token string) error {
	l, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(l.TokenHash), []byte(token)) != nil {
		return ErrInvalidHostToken
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.logger.Info("session delisted", zap.String("session_id", id))
	return nil
}
