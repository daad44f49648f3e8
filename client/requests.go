package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNoWorkspace = errors.New("no active workspace")

// requestStaleAfter is how long a cached list is served without refetching.
// A stale list is still returned immediately, with a refresh in background.
const requestStaleAfter = 30 * time.Second

type requestEntry struct {
	rows      []Request
	fetchedAt time.Time
}

func (e *requestEntry) stale() bool {
	return time.Since(e.fetchedAt) >= requestStaleAfter
}

// RequestCache holds the material request lists per workspace and applies
// status changes optimistically, rolling back to the previous rows if the
// backend rejects the change.
type RequestCache struct {
	gateway Gateway
	session *SessionStore

	mu         sync.Mutex
	entries    map[uuid.UUID]*requestEntry
	inflight   map[uuid.UUID]context.CancelFunc
	generation map[uuid.UUID]int

	subscribers []chan struct{}
}

func NewRequestCache(gateway Gateway, session *SessionStore) *RequestCache {
	return &RequestCache{
		gateway:    gateway,
		session:    session,
		entries:    make(map[uuid.UUID]*requestEntry),
		inflight:   make(map[uuid.UUID]context.CancelFunc),
		generation: make(map[uuid.UUID]int),
	}
}

func (c *RequestCache) activeCompany() *uuid.UUID {
	profile, _ := c.session.Profile()
	if profile == nil {
		return nil
	}
	return profile.CompanyId
}

func cloneRows(rows []Request) []Request {
	if rows == nil {
		return nil
	}
	cloned := make([]Request, len(rows))
	copy(cloned, rows)
	return cloned
}

// List returns the requests for the active workspace. A fresh cache entry is
// served as is, a stale one is served immediately while a background refresh
// runs, and a missing one is fetched synchronously.
func (c *RequestCache) List(ctx context.Context) ([]Request, error) {
	companyId := c.activeCompany()
	if companyId == nil {
		return []Request{}, nil
	}

	c.mu.Lock()
	entry, ok := c.entries[*companyId]
	if ok {
		rows := cloneRows(entry.rows)
		needsRefresh := entry.stale()
		c.mu.Unlock()

		if needsRefresh {
			c.refreshInBackground(*companyId)
		}
		return rows, nil
	}
	c.mu.Unlock()

	rows, err := c.gateway.ListRequests(ctx)
	if err != nil {
		return nil, err
	}

	c.storeRows(*companyId, rows)
	return cloneRows(rows), nil
}

func (c *RequestCache) storeRows(companyId uuid.UUID, rows []Request) {
	c.mu.Lock()
	c.entries[companyId] = &requestEntry{rows: rows, fetchedAt: time.Now()}
	c.mu.Unlock()
	c.notify()
}

// refreshInBackground refetches the list for the workspace, cancelling any
// refresh already in flight for it. A cancelled fetch discards its result so
// it cannot overwrite a newer mutation.
func (c *RequestCache) refreshInBackground(companyId uuid.UUID) {
	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if prev, ok := c.inflight[companyId]; ok {
		prev()
	}
	c.inflight[companyId] = cancel
	c.generation[companyId]++
	generation := c.generation[companyId]
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			if c.generation[companyId] == generation {
				delete(c.inflight, companyId)
			}
			c.mu.Unlock()
			cancel()
		}()

		rows, err := c.gateway.ListRequests(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("background request refresh failed", "company_id", companyId, "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		c.storeRows(companyId, rows)
	}()
}

func (c *RequestCache) cancelInflight(companyId uuid.UUID) {
	c.mu.Lock()
	if cancel, ok := c.inflight[companyId]; ok {
		cancel()
		delete(c.inflight, companyId)
	}
	c.mu.Unlock()
}

// UpdateStatus applies the new status to the cached row immediately, then
// confirms it with the backend. On failure the rows are restored to the exact
// snapshot taken before the mutation.
func (c *RequestCache) UpdateStatus(ctx context.Context, requestId uuid.UUID, status string) (Request, error) {
	companyId := c.activeCompany()
	if companyId == nil {
		return Request{}, ErrNoWorkspace
	}

	c.cancelInflight(*companyId)

	c.mu.Lock()
	var snapshot []Request
	hadEntry := false
	if entry, ok := c.entries[*companyId]; ok {
		hadEntry = true
		snapshot = cloneRows(entry.rows)
		for i := range entry.rows {
			if entry.rows[i].Id == requestId {
				entry.rows[i].Status = status
				break
			}
		}
	}
	c.mu.Unlock()
	c.notify()

	updated, err := c.gateway.UpdateRequestStatus(ctx, requestId, status)
	if err != nil {
		c.mu.Lock()
		if hadEntry {
			if entry, ok := c.entries[*companyId]; ok {
				entry.rows = snapshot
			}
		}
		c.mu.Unlock()
		c.notify()
		return Request{}, err
	}

	c.mu.Lock()
	if entry, ok := c.entries[*companyId]; ok {
		for i := range entry.rows {
			if entry.rows[i].Id == requestId {
				entry.rows[i] = updated
				break
			}
		}
		// Mark stale so the next read reconciles with the backend.
		entry.fetchedAt = time.Time{}
	}
	c.mu.Unlock()
	c.notify()

	return updated, nil
}

// Create submits a new request and inserts the created row at the head of the
// cached list, matching the backend's newest first ordering.
func (c *RequestCache) Create(ctx context.Context, req NewRequest) (Request, error) {
	companyId := c.activeCompany()
	if companyId == nil {
		return Request{}, ErrNoWorkspace
	}

	created, err := c.gateway.CreateRequest(ctx, req)
	if err != nil {
		return Request{}, err
	}

	c.mu.Lock()
	if entry, ok := c.entries[*companyId]; ok {
		entry.rows = append([]Request{created}, entry.rows...)
		entry.fetchedAt = time.Time{}
	}
	c.mu.Unlock()
	c.notify()

	return created, nil
}

// Update edits a request without optimism, the cached row is only replaced
// once the backend confirms.
func (c *RequestCache) Update(ctx context.Context, requestId uuid.UUID, update RequestUpdate) (Request, error) {
	updated, err := c.gateway.UpdateRequest(ctx, requestId, update)
	if err != nil {
		return Request{}, err
	}

	c.mu.Lock()
	if entry, ok := c.entries[updated.CompanyId]; ok {
		for i := range entry.rows {
			if entry.rows[i].Id == requestId {
				entry.rows[i] = updated
				break
			}
		}
		entry.fetchedAt = time.Time{}
	}
	c.mu.Unlock()
	c.notify()

	return updated, nil
}

// Invalidate drops every cached list and cancels in flight refreshes. Used on
// workspace switches so rows from the old workspace can never be served.
func (c *RequestCache) Invalidate() {
	c.mu.Lock()
	for companyId, cancel := range c.inflight {
		cancel()
		delete(c.inflight, companyId)
	}
	c.entries = make(map[uuid.UUID]*requestEntry)
	c.mu.Unlock()
	c.notify()
}

// Subscribe returns a channel signalled after each cache change. Signals are
// coalesced.
func (c *RequestCache) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.mu.Unlock()
	return ch
}

func (c *RequestCache) notify() {
	c.mu.Lock()
	subscribers := c.subscribers
	c.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
