package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HttpGateway talks to the tracker's /api/v1 surface. It holds the active
// session in memory and publishes sign in and sign out transitions on a
// buffered event channel.
type HttpGateway struct {
	baseUrl string
	http    *http.Client

	mu      sync.Mutex
	session *Session

	events chan AuthEvent
	closed bool
}

func NewHttpGateway(baseUrl string) *HttpGateway {
	return &HttpGateway{
		baseUrl: baseUrl + "/api/v1",
		http:    &http.Client{Timeout: 90 * time.Second},
		events:  make(chan AuthEvent, 16),
	}
}

func (g *HttpGateway) emit(event AuthEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	select {
	case g.events <- event:
	default:
		slog.Warn("auth event channel full, dropping event", "type", event.Type)
	}
}

func (g *HttpGateway) AuthEvents() <-chan AuthEvent {
	return g.events
}

func (g *HttpGateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.closed = true
		close(g.events)
	}
}

func (g *HttpGateway) setSession(session *Session) {
	g.mu.Lock()
	g.session = session
	g.mu.Unlock()
}

func (g *HttpGateway) token() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil || g.session.Expired() {
		return "", ErrNoSession
	}
	return g.session.AccessToken, nil
}

type loginResponse struct {
	UserId      uuid.UUID `json:"user_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (g *HttpGateway) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var res loginResponse
	err := get(g.baseUrl, "/user/login").Login(email, password).Do(ctx, g.http, &res)
	if err != nil {
		return nil, err
	}

	session := &Session{
		UserId:      res.UserId,
		Email:       email,
		AccessToken: res.AccessToken,
		ExpiresAt:   res.ExpiresAt,
	}
	g.setSession(session)
	g.emit(AuthEvent{Type: AuthSignedIn, Session: session})
	return session, nil
}

func (g *HttpGateway) SignInWithToken(ctx context.Context, accessToken string) (*Session, error) {
	body := map[string]string{"access_token": accessToken}

	var res loginResponse
	err := post(g.baseUrl, "/user/login-with-token").Json(body).Do(ctx, g.http, &res)
	if err != nil {
		return nil, err
	}

	session := &Session{
		UserId:      res.UserId,
		AccessToken: res.AccessToken,
		ExpiresAt:   res.ExpiresAt,
	}
	g.setSession(session)
	g.emit(AuthEvent{Type: AuthSignedIn, Session: session})
	return session, nil
}

func (g *HttpGateway) SignUp(ctx context.Context, fullName, email, password string) (*Session, error) {
	body := map[string]string{"full_name": fullName, "email": email, "password": password}

	err := post(g.baseUrl, "/user/signup").Json(body).Process(ctx, g.http)
	if err != nil {
		return nil, err
	}

	return g.SignInWithPassword(ctx, email, password)
}

// SignOut discards the local session. Tokens are not revocable server side,
// they simply expire.
func (g *HttpGateway) SignOut(ctx context.Context) error {
	g.setSession(nil)
	g.emit(AuthEvent{Type: AuthSignedOut})
	return nil
}

func (g *HttpGateway) GetSession(ctx context.Context) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil || g.session.Expired() {
		return nil, nil
	}
	session := *g.session
	return &session, nil
}

// profileWire carries the backend's profile shape. The joined company comes
// back as an object, but older gateways returned a single element array, so
// the field is normalized from either form.
type profileWire struct {
	Id        uuid.UUID       `json:"id"`
	FullName  *string         `json:"full_name"`
	Role      string          `json:"role"`
	CompanyId *uuid.UUID      `json:"company_id"`
	Companies json.RawMessage `json:"companies"`
}

func normalizeCompanyName(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	type companyName struct {
		Name string `json:"name"`
	}

	var single companyName
	if err := json.Unmarshal(raw, &single); err == nil && single.Name != "" {
		return &single.Name
	}

	var many []companyName
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 && many[0].Name != "" {
		return &many[0].Name
	}

	return nil
}

func (g *HttpGateway) GetProfile(ctx context.Context, userId uuid.UUID) (Profile, error) {
	token, err := g.token()
	if err != nil {
		return Profile{}, err
	}

	var wire profileWire
	err = get(g.baseUrl, "/user/profile").Auth(token).Do(ctx, g.http, &wire)
	if err != nil {
		return Profile{}, err
	}

	return Profile{
		Id:          wire.Id,
		FullName:    wire.FullName,
		Role:        wire.Role,
		CompanyId:   wire.CompanyId,
		CompanyName: normalizeCompanyName(wire.Companies),
	}, nil
}

func (g *HttpGateway) UpdateProfileCompany(ctx context.Context, companyId uuid.UUID, role string) error {
	token, err := g.token()
	if err != nil {
		return err
	}

	body := map[string]interface{}{"company_id": companyId}
	if role != "" {
		body["role"] = role
	}

	err = put(g.baseUrl, "/user/profile/company").Auth(token).Json(body).Process(ctx, g.http)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusUnprocessableEntity {
			return ErrInvalidWorkspace
		}
		return err
	}
	return nil
}

func (g *HttpGateway) ListCompanies(ctx context.Context) ([]Company, error) {
	token, err := g.token()
	if err != nil {
		return nil, err
	}

	var companies []Company
	err = get(g.baseUrl, "/company/list").Auth(token).Do(ctx, g.http, &companies)
	if err != nil {
		return nil, err
	}
	return companies, nil
}

func (g *HttpGateway) CreateCompany(ctx context.Context, name string) (uuid.UUID, error) {
	token, err := g.token()
	if err != nil {
		return uuid.Nil, err
	}

	var res struct {
		CompanyId uuid.UUID `json:"company_id"`
	}
	err = post(g.baseUrl, "/company/create").Auth(token).Json(map[string]string{"name": name}).Do(ctx, g.http, &res)
	if err != nil {
		return uuid.Nil, err
	}
	return res.CompanyId, nil
}

func (g *HttpGateway) ListRequests(ctx context.Context) ([]Request, error) {
	token, err := g.token()
	if err != nil {
		return nil, err
	}

	var requests []Request
	err = get(g.baseUrl, "/request/list").Auth(token).Do(ctx, g.http, &requests)
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (g *HttpGateway) CreateRequest(ctx context.Context, req NewRequest) (Request, error) {
	token, err := g.token()
	if err != nil {
		return Request{}, err
	}

	var created Request
	err = post(g.baseUrl, "/request/create").Auth(token).Json(req).Do(ctx, g.http, &created)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusUnprocessableEntity {
			return Request{}, ErrInvalidWorkspace
		}
		return Request{}, err
	}
	return created, nil
}

func (g *HttpGateway) UpdateRequestStatus(ctx context.Context, requestId uuid.UUID, status string) (Request, error) {
	token, err := g.token()
	if err != nil {
		return Request{}, err
	}

	var updated Request
	err = post(g.baseUrl, "/request/"+requestId.String()+"/status").
		Auth(token).
		Json(map[string]string{"status": status}).
		Do(ctx, g.http, &updated)
	if err != nil {
		return Request{}, err
	}
	return updated, nil
}

func (g *HttpGateway) UpdateRequest(ctx context.Context, requestId uuid.UUID, update RequestUpdate) (Request, error) {
	token, err := g.token()
	if err != nil {
		return Request{}, err
	}

	var updated Request
	err = put(g.baseUrl, "/request/"+requestId.String()).Auth(token).Json(update).Do(ctx, g.http, &updated)
	if err != nil {
		return Request{}, err
	}
	return updated, nil
}

func (g *HttpGateway) ExtractDocument(ctx context.Context, imageBase64 string) (string, error) {
	token, err := g.token()
	if err != nil {
		return "", err
	}

	var res struct {
		Text  string `json:"text"`
		Model string `json:"model"`
	}
	err = post(g.baseUrl, "/extract/").Auth(token).Json(map[string]string{"image": imageBase64}).Do(ctx, g.http, &res)
	if err != nil {
		return "", err
	}

	slog.Info("document extraction completed", "model", res.Model)
	return res.Text, nil
}
