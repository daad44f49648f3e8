package client

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is an authenticated login to the tracker backend.
type Session struct {
	UserId      uuid.UUID
	Email       string
	AccessToken string
	ExpiresAt   time.Time
}

func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

type AuthEventType int

const (
	AuthSignedIn AuthEventType = iota
	AuthSignedOut
)

// AuthEvent is emitted by the gateway whenever the login state changes.
// Session is nil for AuthSignedOut events.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
}

type Profile struct {
	Id          uuid.UUID  `json:"id"`
	FullName    *string    `json:"full_name"`
	Role        string     `json:"role"`
	CompanyId   *uuid.UUID `json:"company_id"`
	CompanyName *string    `json:"company_name"`
}

func (p *Profile) HasWorkspace() bool {
	return p.CompanyId != nil
}

type Company struct {
	Id   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Request struct {
	Id              uuid.UUID `json:"id"`
	CompanyId       uuid.UUID `json:"company_id"`
	RequestedBy     uuid.UUID `json:"requested_by"`
	RequestedByName string    `json:"requested_by_name"`
	MaterialName    string    `json:"material_name"`
	Quantity        float64   `json:"quantity"`
	Unit            string    `json:"unit"`
	Priority        string    `json:"priority"`
	Status          string    `json:"status"`
	Notes           *string   `json:"notes"`
	ImageUrl        *string   `json:"image_url"`
	RequestedAt     time.Time `json:"requested_at"`
}

type NewRequest struct {
	MaterialName string  `json:"material_name"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	Priority     string  `json:"priority"`
	Notes        *string `json:"notes"`
}

// RequestUpdate is a partial edit, nil fields are left unchanged.
type RequestUpdate struct {
	MaterialName *string  `json:"material_name"`
	Quantity     *float64 `json:"quantity"`
	Unit         *string  `json:"unit"`
	Priority     *string  `json:"priority"`
	Notes        *string  `json:"notes"`
}

var (
	// ErrInvalidWorkspace matches the backend's message for a company id that
	// does not exist, so callers can surface it directly.
	ErrInvalidWorkspace = errors.New("Invalid Workspace ID. Please check with your Admin.")

	ErrNoSession = errors.New("no active session")
)

// Gateway is the client's view of the tracker backend. HttpGateway is the
// production implementation, tests substitute stubs.
type Gateway interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignInWithToken(ctx context.Context, accessToken string) (*Session, error)
	SignUp(ctx context.Context, fullName, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (*Session, error)

	GetProfile(ctx context.Context, userId uuid.UUID) (Profile, error)
	UpdateProfileCompany(ctx context.Context, companyId uuid.UUID, role string) error

	ListCompanies(ctx context.Context) ([]Company, error)
	CreateCompany(ctx context.Context, name string) (uuid.UUID, error)

	ListRequests(ctx context.Context) ([]Request, error)
	CreateRequest(ctx context.Context, req NewRequest) (Request, error)
	UpdateRequestStatus(ctx context.Context, requestId uuid.UUID, status string) (Request, error)
	UpdateRequest(ctx context.Context, requestId uuid.UUID, update RequestUpdate) (Request, error)

	ExtractDocument(ctx context.Context, imageBase64 string) (string, error)

	AuthEvents() <-chan AuthEvent
	Close()
}
