package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SwitchTargetNew is the sentinel selection meaning "create a new workspace",
// which routes to the setup screen instead of switching.
const SwitchTargetNew = "new"

// DemoWorkspaceName is the display name for the shared demo workspace.
const DemoWorkspaceName = "Demo Workspace"

var demoCompanyId = uuid.MustParse("00000000-0000-0000-0000-000000000001")

const companyListTtl = 5 * time.Minute

// WorkspaceSelector manages which workspace the user is operating in and
// caches the list of selectable workspaces.
type WorkspaceSelector struct {
	gateway  Gateway
	session  *SessionStore
	requests *RequestCache
	nav      Navigator

	mu        sync.Mutex
	companies []Company
	fetchedAt time.Time
}

func NewWorkspaceSelector(gateway Gateway, session *SessionStore, requests *RequestCache, nav Navigator) *WorkspaceSelector {
	return &WorkspaceSelector{gateway: gateway, session: session, requests: requests, nav: nav}
}

// Companies returns the selectable workspaces, refreshing the cached list
// once it is older than five minutes. The demo workspace is renamed for
// display. A fetch failure degrades to an empty list so the picker still
// renders.
func (w *WorkspaceSelector) Companies(ctx context.Context) []Company {
	w.mu.Lock()
	if w.companies != nil && time.Since(w.fetchedAt) < companyListTtl {
		cached := make([]Company, len(w.companies))
		copy(cached, w.companies)
		w.mu.Unlock()
		return cached
	}
	w.mu.Unlock()

	companies, err := w.gateway.ListCompanies(ctx)
	if err != nil {
		slog.Error("error listing workspaces", "error", err)
		return []Company{}
	}

	for i := range companies {
		if companies[i].Id == demoCompanyId {
			companies[i].Name = DemoWorkspaceName
		}
	}

	w.mu.Lock()
	w.companies = companies
	w.fetchedAt = time.Now()
	w.mu.Unlock()

	result := make([]Company, len(companies))
	copy(result, companies)
	return result
}

// InvalidateCompanies drops the cached list, used after creating a workspace.
func (w *WorkspaceSelector) InvalidateCompanies() {
	w.mu.Lock()
	w.companies = nil
	w.fetchedAt = time.Time{}
	w.mu.Unlock()
}

// Active returns the workspace id from the current profile, or nil.
func (w *WorkspaceSelector) Active() *uuid.UUID {
	profile, _ := w.session.Profile()
	if profile == nil {
		return nil
	}
	return profile.CompanyId
}

// Switch changes the active workspace. Selecting the sentinel target opens
// the setup screen. Reselecting the current workspace performs no writes and
// at most navigates back to the dashboard from setup. Otherwise the profile
// is updated on the backend, refetched, and the request cache is dropped
// before navigating, so no request from the old workspace survives.
func (w *WorkspaceSelector) Switch(ctx context.Context, target string) error {
	if target == SwitchTargetNew {
		if w.nav != nil {
			w.nav.Navigate(RouteSetup, false)
		}
		return nil
	}

	companyId, err := uuid.Parse(target)
	if err != nil {
		return ErrInvalidWorkspace
	}

	active := w.Active()
	if active != nil && *active == companyId {
		if w.nav != nil && w.nav.Current() == RouteSetup {
			w.nav.Navigate(RouteDashboard, true)
		}
		return nil
	}

	if err := w.gateway.UpdateProfileCompany(ctx, companyId, ""); err != nil {
		return err
	}

	if err := w.session.RefreshProfile(ctx); err != nil {
		return err
	}

	w.requests.Invalidate()

	if w.nav != nil {
		w.nav.Navigate(RouteDashboard, true)
	}

	slog.Info("switched workspace", "company_id", companyId)
	return nil
}

// CreateWorkspace creates a new workspace, which the backend assigns to the
// creator as admin, then refreshes local state and navigates to the
// dashboard.
func (w *WorkspaceSelector) CreateWorkspace(ctx context.Context, name string) (uuid.UUID, error) {
	companyId, err := w.gateway.CreateCompany(ctx, name)
	if err != nil {
		return uuid.Nil, err
	}

	w.InvalidateCompanies()

	if err := w.session.RefreshProfile(ctx); err != nil {
		return uuid.Nil, err
	}

	w.requests.Invalidate()

	if w.nav != nil {
		w.nav.Navigate(RouteDashboard, true)
	}
	return companyId, nil
}
