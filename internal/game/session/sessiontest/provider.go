// Package sessiontest provides a scriptable session.Provider for tests.
package sessiontest

import (
	"context"
	"fmt"
	"sync"

	"github.com/cory-johannsen/multiplay/internal/game/session"
)

// CreateRequest records one CreateSession call.
type CreateRequest struct {
	Name     string
	Config   session.SessionConfig
	Settings map[string]string
	ch       chan session.CreateCompletion
}

// JoinRequest records one JoinSession call.
type JoinRequest struct {
	Name   string
	Target session.SearchResult
	ch     chan session.JoinCompletion
}

type destroyRequest struct {
	name string
	ch   chan session.DestroyCompletion
}

// Provider is a session.Provider whose completions are released by the test.
// Requests queue up until the matching Complete* method is called.
//
// All methods are safe for concurrent use.
type Provider struct {
	Subsystem string

	mu        sync.Mutex
	creates   []*CreateRequest
	finds     []chan session.FindCompletion
	joins     []*JoinRequest
	destroys  []destroyRequest
	addresses map[string]string
	failures  chan string
	calls     int

	// Created and Joined keep every request ever made, for assertions.
	Created   []CreateRequest
	Joined    []JoinRequest
	Destroyed []string
}

// NewProvider returns a Provider reporting the given subsystem name.
func NewProvider(subsystem string) *Provider {
	return &Provider{
		Subsystem: subsystem,
		addresses: make(map[string]string),
		failures:  make(chan string, 4),
	}
}

// SubsystemName implements session.Provider.
func (p *Provider) SubsystemName() string { return p.Subsystem }

// CreateSession implements session.Provider.
func (p *Provider) CreateSession(_ context.Context, name string, cfg session.SessionConfig, settings map[string]string) <-chan session.CreateCompletion {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	req := &CreateRequest{Name: name, Config: cfg, Settings: settings, ch: make(chan session.CreateCompletion, 1)}
	p.creates = append(p.creates, req)
	p.Created = append(p.Created, *req)
	return req.ch
}

// FindSessions implements session.Provider.
func (p *Provider) FindSessions(_ context.Context, _ session.Query) <-chan session.FindCompletion {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	ch := make(chan session.FindCompletion, 1)
	p.finds = append(p.finds, ch)
	return ch
}

// JoinSession implements session.Provider.
func (p *Provider) JoinSession(_ context.Context, name string, r session.SearchResult) <-chan session.JoinCompletion {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	req := &JoinRequest{Name: name, Target: r, ch: make(chan session.JoinCompletion, 1)}
	p.joins = append(p.joins, req)
	p.Joined = append(p.Joined, *req)
	return req.ch
}

// DestroySession implements session.Provider.
func (p *Provider) DestroySession(_ context.Context, name string) <-chan session.DestroyCompletion {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	req := destroyRequest{name: name, ch: make(chan session.DestroyCompletion, 1)}
	p.destroys = append(p.destroys, req)
	p.Destroyed = append(p.Destroyed, name)
	return req.ch
}

// ResolvedConnectAddress implements session.Provider.
func (p *Provider) ResolvedConnectAddress(name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	addr, ok := p.addresses[name]
	return addr, ok
}

// Failures implements session.Provider.
func (p *Provider) Failures() <-chan string { return p.failures }

// SetAddress sets the address returned for name after a join.
func (p *Provider) SetAddress(name, addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addresses[name] = addr
}

// Fail reports a transport failure.
func (p *Provider) Fail(msg string) { p.failures <- msg }

// Calls returns the number of requests received.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// PendingCreates returns the number of unanswered create requests.
func (p *Provider) PendingCreates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creates)
}

// PendingDestroys returns the number of unanswered destroy requests.
func (p *Provider) PendingDestroys() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.destroys)
}

// CompleteCreate answers the oldest create request.
//
// Precondition: A create request is pending; panics otherwise.
func (p *Provider) CompleteCreate(handle string, err error) {
	p.mu.Lock()
	req := p.creates[0]
	p.creates = p.creates[1:]
	p.mu.Unlock()
	req.ch <- session.CreateCompletion{SessionName: req.Name, Handle: handle, Err: err}
	close(req.ch)
}

// CompleteFind answers the oldest find request.
//
// Precondition: A find request is pending; panics otherwise.
func (p *Provider) CompleteFind(results []session.SearchResult, err error) {
	p.mu.Lock()
	ch := p.finds[0]
	p.finds = p.finds[1:]
	p.mu.Unlock()
	ch <- session.FindCompletion{Results: results, Err: err}
	close(ch)
}

// CompleteJoin answers the oldest join request.
//
// Precondition: A join request is pending; panics otherwise.
func (p *Provider) CompleteJoin(result session.JoinResult) {
	p.mu.Lock()
	req := p.joins[0]
	p.joins = p.joins[1:]
	p.mu.Unlock()
	req.ch <- session.JoinCompletion{SessionName: req.Name, Handle: req.Target.SessionID, Result: result}
	close(req.ch)
}

// CompleteDestroy answers the oldest destroy request.
//
// Precondition: A destroy request is pending; panics otherwise.
func (p *Provider) CompleteDestroy(err error) {
	p.mu.Lock()
	req := p.destroys[0]
	p.destroys = p.destroys[1:]
	p.mu.Unlock()
	req.ch <- session.DestroyCompletion{SessionName: req.name, Err: err}
	close(req.ch)
}

// Results builds n well-formed search results.
func Results(n int) []session.SearchResult {
	out := make([]session.SearchResult, n)
	for i := range out {
		out[i] = session.SearchResult{
			SessionID:       fmt.Sprintf("session-%d", i),
			OwningUserName:  "owner",
			MaxPublicSlots:  session.DefaultPublicSlots,
			OpenPublicSlots: session.DefaultPublicSlots - 1,
			Settings: map[string]string{
				session.SettingHostName: "Host",
				session.SettingGameMode: "1",
			},
		}
	}
	return out
}
