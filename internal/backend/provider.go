// Package backend implements session.Provider over the session directory,
// either in-process for LAN play or over gRPC.
package backend

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/multiplay/internal/config"
	"github.com/cory-johannsen/multiplay/internal/directory"
	"github.com/cory-johannsen/multiplay/internal/game/session"
)

// ErrUnknownSession is reported when destroying a name this provider never
// hosted or joined.
var ErrUnknownSession = errors.New("no hosted or joined session with that name")

// Directory is the listing API a provider runs against.
type Directory interface {
	CreateSession(ctx context.Context, a directory.Advert) (directory.Listing, string, error)
	FindSessions(ctx context.Context, q directory.Query) ([]directory.Listing, error)
	JoinSession(ctx context.Context, sessionID, playerName string) (directory.Listing, error)
	LeaveSession(ctx context.Context, sessionID string) error
	DestroySession(ctx context.Context, sessionID, token string) error
}

type hostedSession struct {
	listingID string
	token     string
}

type joinedSession struct {
	listingID string
	address   string
}

// directoryProvider runs every request on its own goroutine and answers on
// a buffered channel that is closed after the single completion.
type directoryProvider struct {
	dir       Directory
	subsystem string
	owner     string
	address   string
	timeout   time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	hosted map[string]hostedSession
	joined map[string]joinedSession
}

func newDirectoryProvider(dir Directory, subsystem string, cfg config.SessionConfig, timeout time.Duration, logger *zap.Logger) *directoryProvider {
	return &directoryProvider{
		dir:       dir,
		subsystem: subsystem,
		owner:     cfg.OwnerName,
		address:   cfg.AdvertiseAddress,
		timeout:   timeout,
		logger:    logger,
		hosted:    make(map[string]hostedSession),
		joined:    make(map[string]joinedSession),
	}
}

// SubsystemName implements session.Provider.
func (p *directoryProvider) SubsystemName() string { return p.subsystem }

func (p *directoryProvider) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// CreateSession implements session.Provider.
func (p *directoryProvider) CreateSession(ctx context.Context, name string, cfg session.SessionConfig, settings map[string]string) <-chan session.CreateCompletion {
	ch := make(chan session.CreateCompletion, 1)
	go func() {
		defer close(ch)
		ctx, cancel := p.requestContext(ctx)
		defer cancel()

		l, token, err := p.dir.CreateSession(ctx, directory.Advert{
			OwnerName:      p.owner,
			MaxPublicSlots: cfg.MaxPublicSlots,
			LAN:            cfg.IsLocalOnly,
			Presence:       cfg.UsesPresence,
			Advertise:      cfg.Advertise,
			Address:        p.address,
			Settings:       settings,
		})
		if err != nil {
			ch <- session.CreateCompletion{SessionName: name, Err: err}
			return
		}
		p.mu.Lock()
		p.hosted[name] = hostedSession{listingID: l.ID, token: token}
		p.mu.Unlock()
		ch <- session.CreateCompletion{SessionName: name, Handle: l.ID}
	}()
	return ch
}

// FindSessions implements session.Provider.
func (p *directoryProvider) FindSessions(ctx context.Context, q session.Query) <-chan session.FindCompletion {
	ch := make(chan session.FindCompletion, 1)
	go func() {
		defer close(ch)
		ctx, cancel := p.requestContext(ctx)
		defer cancel()

		ls, err := p.dir.FindSessions(ctx, directory.Query{
			MaxResults: q.MaxResults,
			LAN:        q.LAN,
			Presence:   q.Presence,
		})
		if err != nil {
			ch <- session.FindCompletion{Err: err}
			return
		}
		results := make([]session.SearchResult, 0, len(ls))
		for _, l := range ls {
			results = append(results, toSearchResult(l))
		}
		ch <- session.FindCompletion{Results: results}
	}()
	return ch
}

// JoinSession implements session.Provider.
func (p *directoryProvider) JoinSession(ctx context.Context, name string, r session.SearchResult) <-chan session.JoinCompletion {
	ch := make(chan session.JoinCompletion, 1)
	go func() {
		defer close(ch)
		ch <- p.join(ctx, name, r)
	}()
	return ch
}

func (p *directoryProvider) join(ctx context.Context, name string, r session.SearchResult) session.JoinCompletion {
	comp := session.JoinCompletion{SessionName: name, Handle: r.SessionID}
	p.mu.Lock()
	_, isHost := p.hosted[name]
	_, isJoined := p.joined[name]
	p.mu.Unlock()
	if isHost || isJoined {
		comp.Result = session.JoinAlreadyInSession
		return comp
	}

	ctx, cancel := p.requestContext(ctx)
	defer cancel()
	l, err := p.dir.JoinSession(ctx, r.SessionID, p.owner)
	if err != nil {
		comp.Result = joinResult(err)
		p.logger.Info("join refused", zap.String("session_id", r.SessionID), zap.Stringer("result", comp.Result), zap.Error(err))
		return comp
	}
	if l.Address == "" {
		if err := p.dir.LeaveSession(ctx, l.ID); err != nil {
			p.logger.Warn("releasing slot of unreachable session", zap.String("session_id", l.ID), zap.Error(err))
		}
		comp.Result = session.JoinAddressUnresolvable
		return comp
	}

	p.mu.Lock()
	p.joined[name] = joinedSession{listingID: l.ID, address: l.Address}
	p.mu.Unlock()
	comp.Result = session.JoinSuccess
	return comp
}

// DestroySession implements session.Provider. A hosted session is delisted;
// a joined one gives its slot back.
func (p *directoryProvider) DestroySession(ctx context.Context, name string) <-chan session.DestroyCompletion {
	ch := make(chan session.DestroyCompletion, 1)
	go func() {
		defer close(ch)
		ctx, cancel := p.requestContext(ctx)
		defer cancel()

		p.mu.Lock()
		h, isHost := p.hosted[name]
		j, isJoined := p.joined[name]
		delete(p.hosted, name)
		delete(p.joined, name)
		p.mu.Unlock()

		var err error
		switch {
		case isHost:
			err = p.dir.DestroySession(ctx, h.listingID, h.token)
		case isJoined:
			err = p.dir.LeaveSession(ctx, j.listingID)
		default:
			err = ErrUnknownSession
		}
		ch <- session.DestroyCompletion{SessionName: name, Err: err}
	}()
	return ch
}

// ResolvedConnectAddress implements session.Provider.
func (p *directoryProvider) ResolvedConnectAddress(name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	j, ok := p.joined[name]
	if !ok || j.address == "" {
		return "", false
	}
	return j.address, true
}

func toSearchResult(l directory.Listing) session.SearchResult {
	return session.SearchResult{
		SessionID:       l.ID,
		OwningUserName:  l.OwnerName,
		MaxPublicSlots:  l.MaxPublicSlots,
		OpenPublicSlots: l.OpenPublicSlots,
		Settings:        l.Settings,
	}
}

// joinResult maps a directory error to the join outcome shown to the player.
func joinResult(err error) session.JoinResult {
	switch {
	case errors.Is(err, directory.ErrSessionFull):
		return session.JoinSessionFull
	case errors.Is(err, directory.ErrListingNotFound):
		return session.JoinSessionNotFound
	case errors.Is(err, directory.ErrAlreadyInSession):
		return session.JoinAlreadyInSession
	default:
		return session.JoinUnknown
	}
}
