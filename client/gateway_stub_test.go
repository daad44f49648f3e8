package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// stubGateway is a scriptable in memory Gateway. Gates are channels that, when
// set, block the corresponding call until closed, to let tests observe
// intermediate states.
type stubGateway struct {
	mu  sync.Mutex
	ops []string

	session      *Session
	sessionErr   error
	profile      Profile
	profileErr   error
	companies    []Company
	companiesErr error
	requests     []Request
	listErr      error
	updateErr    error
	extractText  string
	extractErr   error

	sessionGate chan struct{}
	profileGate chan struct{}
	updateGate  chan struct{}

	events chan AuthEvent
}

func newStubGateway() *stubGateway {
	return &stubGateway{events: make(chan AuthEvent, 16)}
}

func (g *stubGateway) record(op string) {
	g.mu.Lock()
	g.ops = append(g.ops, op)
	g.mu.Unlock()
}

func (g *stubGateway) opLog() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ops := make([]string, len(g.ops))
	copy(ops, g.ops)
	return ops
}

func wait(gate chan struct{}) {
	if gate != nil {
		<-gate
	}
}

func (g *stubGateway) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	g.record("sign_in")
	g.mu.Lock()
	session := g.session
	g.mu.Unlock()
	g.events <- AuthEvent{Type: AuthSignedIn, Session: session}
	return session, nil
}

func (g *stubGateway) SignInWithToken(ctx context.Context, accessToken string) (*Session, error) {
	g.record("sign_in_token")
	return g.session, nil
}

func (g *stubGateway) SignUp(ctx context.Context, fullName, email, password string) (*Session, error) {
	g.record("sign_up")
	return g.session, nil
}

func (g *stubGateway) SignOut(ctx context.Context) error {
	g.record("sign_out")
	g.mu.Lock()
	g.session = nil
	g.mu.Unlock()
	g.events <- AuthEvent{Type: AuthSignedOut}
	return nil
}

func (g *stubGateway) GetSession(ctx context.Context) (*Session, error) {
	wait(g.sessionGate)
	g.record("get_session")
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session, g.sessionErr
}

func (g *stubGateway) GetProfile(ctx context.Context, userId uuid.UUID) (Profile, error) {
	wait(g.profileGate)
	g.record("get_profile")
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.profile, g.profileErr
}

func (g *stubGateway) UpdateProfileCompany(ctx context.Context, companyId uuid.UUID, role string) error {
	g.record("update_profile_company")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.updateErr != nil {
		return g.updateErr
	}
	id := companyId
	g.profile.CompanyId = &id
	return nil
}

func (g *stubGateway) ListCompanies(ctx context.Context) ([]Company, error) {
	g.record("list_companies")
	g.mu.Lock()
	defer g.mu.Unlock()
	companies := make([]Company, len(g.companies))
	copy(companies, g.companies)
	return companies, g.companiesErr
}

func (g *stubGateway) CreateCompany(ctx context.Context, name string) (uuid.UUID, error) {
	g.record("create_company")
	companyId := uuid.New()
	g.mu.Lock()
	g.companies = append(g.companies, Company{Id: companyId, Name: name})
	g.profile.CompanyId = &companyId
	g.mu.Unlock()
	return companyId, nil
}

func (g *stubGateway) ListRequests(ctx context.Context) ([]Request, error) {
	g.record("list_requests")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	rows := make([]Request, len(g.requests))
	copy(rows, g.requests)
	return rows, nil
}

func (g *stubGateway) CreateRequest(ctx context.Context, req NewRequest) (Request, error) {
	g.record("create_request")
	g.mu.Lock()
	defer g.mu.Unlock()

	unit := req.Unit
	if unit == "" {
		unit = "pieces"
	}
	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}

	created := Request{
		Id:           uuid.New(),
		MaterialName: req.MaterialName,
		Quantity:     req.Quantity,
		Unit:         unit,
		Priority:     priority,
		Status:       "pending",
		Notes:        req.Notes,
		RequestedAt:  time.Now().UTC(),
	}
	if g.profile.CompanyId != nil {
		created.CompanyId = *g.profile.CompanyId
	}
	g.requests = append([]Request{created}, g.requests...)
	return created, nil
}

func (g *stubGateway) UpdateRequestStatus(ctx context.Context, requestId uuid.UUID, status string) (Request, error) {
	wait(g.updateGate)
	g.record("update_status")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.updateErr != nil {
		return Request{}, g.updateErr
	}
	for i := range g.requests {
		if g.requests[i].Id == requestId {
			g.requests[i].Status = status
			return g.requests[i], nil
		}
	}
	return Request{}, ErrNoWorkspace
}

func (g *stubGateway) UpdateRequest(ctx context.Context, requestId uuid.UUID, update RequestUpdate) (Request, error) {
	g.record("update_request")
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.requests {
		if g.requests[i].Id == requestId {
			if update.MaterialName != nil {
				g.requests[i].MaterialName = *update.MaterialName
			}
			if update.Quantity != nil {
				g.requests[i].Quantity = *update.Quantity
			}
			if update.Unit != nil {
				g.requests[i].Unit = *update.Unit
			}
			if update.Priority != nil {
				g.requests[i].Priority = *update.Priority
			}
			if update.Notes != nil {
				g.requests[i].Notes = update.Notes
			}
			return g.requests[i], nil
		}
	}
	return Request{}, ErrNoWorkspace
}

func (g *stubGateway) ExtractDocument(ctx context.Context, imageBase64 string) (string, error) {
	g.record("extract")
	return g.extractText, g.extractErr
}

func (g *stubGateway) AuthEvents() <-chan AuthEvent {
	return g.events
}

func (g *stubGateway) Close() {}

// stubNav records navigation decisions.
type stubNav struct {
	mu      sync.Mutex
	current Route
	history []Route
}

func (n *stubNav) Navigate(route Route, replace bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = route
	n.history = append(n.history, route)
}

func (n *stubNav) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *stubNav) visited() []Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	history := make([]Route, len(n.history))
	copy(history, n.history)
	return history
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testSession() *Session {
	return &Session{
		UserId:      uuid.New(),
		Email:       "worker@mail.com",
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func strPtr(s string) *string { return &s }
