package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// DefaultSoftQuotaThreshold is the per-credential usage count at which the
// pool proactively rotates before the platform starts rejecting calls
// (nominal daily allowance is 10000 units).
const DefaultSoftQuotaThreshold = 9000

// credential pairs an API key with the service built for it plus its
// per-run bookkeeping.
type credential struct {
	key       string
	service   *ytapi.Service
	usage     int
	available bool
}

// Pool owns the credential rotation state shared by all workers. All
// access goes through the mutex; callers never see raw counters.
type Pool struct {
	mu        sync.Mutex
	creds     []*credential
	current   int
	softLimit int
}

// NewPool builds one YouTube service per API key. The pool starts on the
// first credential with all counters at zero.
func NewPool(ctx context.Context, keys []string, softLimit int) (*Pool, error) {
	if len(keys) == 0 {
		return nil, ErrNoCredentials
	}
	if softLimit <= 0 {
		softLimit = DefaultSoftQuotaThreshold
	}

	creds := make([]*credential, 0, len(keys))
	for _, key := range keys {
		service, err := ytapi.NewService(ctx, option.WithAPIKey(key))
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service: %w", err)
		}
		creds = append(creds, &credential{key: key, service: service, available: true})
	}

	log.Info().Int("credentials", len(creds)).Msg("Credential pool initialized")
	return &Pool{creds: creds, softLimit: softLimit}, nil
}

// Size returns the number of configured credentials.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

// Active returns the service for the current credential and its index.
func (p *Pool) Active() (*ytapi.Service, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creds[p.current].service, p.current
}

// RecordUse increments the active credential's usage counter. Crossing the
// soft threshold rotates to the next available credential; if no other
// credential is available the current one is kept and the hard quota error
// from upstream will force the issue.
func (p *Pool) RecordUse() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred := p.creds[p.current]
	cred.usage++
	if cred.usage < p.softLimit {
		return
	}

	log.Warn().
		Int("credential_index", p.current).
		Int("usage", cred.usage).
		Int("soft_limit", p.softLimit).
		Msg("Credential reached soft quota threshold, rotating")

	cred.available = false
	if err := p.rotateLocked(); err != nil {
		// Keep using the current credential until upstream rejects it.
		cred.available = true
		log.Warn().Msg("No other credential available, keeping current one")
	}
}

// MarkExhausted marks the credential at index unavailable after an upstream
// quota rejection and rotates to the next available credential in ring
// order. Returns ErrQuotaExhausted when rotation has visited every
// credential without finding an available one.
func (p *Pool) MarkExhausted(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index >= 0 && index < len(p.creds) {
		p.creds[index].available = false
	}
	return p.rotateLocked()
}

// rotateLocked advances current to the next available credential. Caller
// holds the mutex.
func (p *Pool) rotateLocked() error {
	for i := 0; i < len(p.creds); i++ {
		p.current = (p.current + 1) % len(p.creds)
		if p.creds[p.current].available {
			log.Info().Int("credential_index", p.current).Msg("Switched to next API credential")
			return nil
		}
	}
	return ErrQuotaExhausted
}

// Reset clears usage counters, marks every credential available and points
// rotation back at the first credential. Invoked at the start of each
// scheduled cycle.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, cred := range p.creds {
		cred.usage = 0
		cred.available = true
	}
	p.current = 0
	log.Info().Msg("Credential usage has been reset")
}
