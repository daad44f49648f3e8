package client

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type SessionState int

const (
	StateUninitialized SessionState = iota
	StateSessionResolving
	StateProfileResolving
	StateReady
	StateSignedOut
)

// defaultFailsafeAfter bounds how long the startup screen can block on the
// network. After this long the loading gate opens regardless, with whatever
// state has resolved so far.
const defaultFailsafeAfter = 3 * time.Second

// SessionStore tracks the signed in user and their profile. On startup it
// applies the cached profile immediately, before the fresh copy arrives over
// the network, so a returning user sees their workspace without waiting.
type SessionStore struct {
	gateway Gateway
	cache   *ProfileCache
	nav     Navigator

	failsafeAfter time.Duration

	mu        sync.Mutex
	state     SessionState
	session   *Session
	profile   *Profile
	fromCache bool
	loading   bool
	lastErr   error

	releaseOnce sync.Once
	failsafe    *time.Timer

	subscribers []chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// NewSessionStore creates the store. nav may be nil when no navigation is
// wired, for example in headless tests.
func NewSessionStore(gateway Gateway, cache *ProfileCache, nav Navigator) *SessionStore {
	return &SessionStore{
		gateway:       gateway,
		cache:         cache,
		nav:           nav,
		failsafeAfter: defaultFailsafeAfter,
		state:         StateUninitialized,
		loading:       true,
		done:          make(chan struct{}),
	}
}

// Start kicks off session resolution and begins watching auth transitions.
func (s *SessionStore) Start(ctx context.Context) {
	s.mu.Lock()
	s.failsafe = time.AfterFunc(s.failsafeAfter, s.releaseLoading)
	s.mu.Unlock()

	go s.watchAuthEvents()
	go s.bootstrap(ctx)
}

// releaseLoading opens the startup gate. It is safe to call from the failsafe
// timer and the resolution path concurrently, only the first call counts.
func (s *SessionStore) releaseLoading() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
	})
}

func (s *SessionStore) bootstrap(ctx context.Context) {
	s.setState(StateSessionResolving)

	session, err := s.gateway.GetSession(ctx)
	if err != nil {
		slog.Error("error resolving session on startup", "error", err)
		s.setError(err)
		s.releaseLoading()
		return
	}
	if session == nil {
		s.setSignedOut()
		s.releaseLoading()
		return
	}

	s.resolveProfile(ctx, session)
}

// resolveProfile applies the cached profile if one exists, releases the
// loading gate, then fetches the fresh profile. Without a cache entry the
// gate stays closed until the fetch finishes so the first paint is accurate.
func (s *SessionStore) resolveProfile(ctx context.Context, session *Session) {
	s.mu.Lock()
	s.session = session
	s.state = StateProfileResolving
	s.mu.Unlock()
	s.notify()

	cached, err := s.cache.Load(session.UserId)
	if err != nil {
		slog.Warn("error reading profile cache", "user_id", session.UserId, "error", err)
	}

	if cached != nil {
		s.applyProfile(cached, true)
		s.releaseLoading()
	}

	fresh, err := s.gateway.GetProfile(ctx, session.UserId)
	if err != nil {
		slog.Error("error fetching profile", "user_id", session.UserId, "error", err)
		s.setError(err)
		s.releaseLoading()
		return
	}

	s.applyProfile(&fresh, false)
	s.releaseLoading()

	if err := s.cache.Store(fresh); err != nil {
		slog.Warn("error caching profile", "user_id", session.UserId, "error", err)
	}
}

func (s *SessionStore) applyProfile(profile *Profile, fromCache bool) {
	s.mu.Lock()
	s.profile = profile
	s.fromCache = fromCache
	s.state = StateReady
	s.lastErr = nil
	s.mu.Unlock()
	s.notify()
}

func (s *SessionStore) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.notify()
}

func (s *SessionStore) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.notify()
}

func (s *SessionStore) setSignedOut() {
	s.mu.Lock()
	s.session = nil
	s.profile = nil
	s.fromCache = false
	s.state = StateSignedOut
	s.mu.Unlock()
	s.notify()
}

func (s *SessionStore) watchAuthEvents() {
	events := s.gateway.AuthEvents()
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			switch event.Type {
			case AuthSignedIn:
				go s.resolveProfile(context.Background(), event.Session)
			case AuthSignedOut:
				s.setSignedOut()
				if s.nav != nil {
					s.nav.Navigate(RouteLogin, true)
				}
			}
		}
	}
}

// RefreshProfile fetches the profile again and replaces the current copy.
func (s *SessionStore) RefreshProfile(ctx context.Context) error {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return ErrNoSession
	}

	fresh, err := s.gateway.GetProfile(ctx, session.UserId)
	if err != nil {
		return err
	}

	s.applyProfile(&fresh, false)

	if err := s.cache.Store(fresh); err != nil {
		slog.Warn("error caching profile", "user_id", session.UserId, "error", err)
	}
	return nil
}

// SignOut drops the cached profile for the user before ending the session so
// a later sign in by a different account cannot see stale data.
func (s *SessionStore) SignOut(ctx context.Context) error {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session != nil {
		if err := s.cache.Delete(session.UserId); err != nil {
			slog.Warn("error clearing profile cache on sign out", "user_id", session.UserId, "error", err)
		}
	}

	return s.gateway.SignOut(ctx)
}

func (s *SessionStore) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SessionStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *SessionStore) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	session := *s.session
	return &session
}

// Profile returns the current profile and whether it came from the cache
// rather than the network.
func (s *SessionStore) Profile() (*Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil, false
	}
	profile := *s.profile
	return &profile, s.fromCache
}

func (s *SessionStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Subscribe returns a channel that receives a signal after each state change.
// Signals are coalesced, a slow receiver sees at least one.
func (s *SessionStore) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch
}

func (s *SessionStore) notify() {
	s.mu.Lock()
	subscribers := s.subscribers
	s.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *SessionStore) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.failsafe != nil {
			s.failsafe.Stop()
		}
		s.mu.Unlock()
		close(s.done)
	})
}
