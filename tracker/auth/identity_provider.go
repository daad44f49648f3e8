package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sitetrack/tracker/schema"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFoundWithEmail = errors.New("no user found for given email")
	ErrInvalidCredentials    = errors.New("invalid login credentials")
	ErrGeneratingJwt         = errors.New("error generating jwt")
	ErrEmailAlreadyInUse     = errors.New("email is already in use")
)

type LoginResult struct {
	UserId      uuid.UUID
	AccessToken string
	ExpiresAt   time.Time
}

type IdentityProvider interface {
	AuthMiddleware() chi.Middlewares

	AllowDirectSignup() bool

	LoginWithEmail(email, password string) (LoginResult, error)

	LoginWithToken(accessToken string) (LoginResult, error)

	CreateUser(fullName, email, password string) (uuid.UUID, error)

	GetTokenExpiration(r *http.Request) (time.Time, error)
}

// createUserWithProfile inserts the user row and its profile row together so
// that a user can never exist without a profile.
func createUserWithProfile(txn *gorm.DB, user schema.User, fullName string) error {
	result := txn.Create(&user)
	if result.Error != nil {
		slog.Error("sql error creating new user entry", "error", result.Error)
		return schema.ErrDbAccessFailed
	}

	profile := schema.Profile{Id: user.Id, Role: schema.RoleWorker}
	if fullName != "" {
		profile.FullName = &fullName
	}
	result = txn.Create(&profile)
	if result.Error != nil {
		slog.Error("sql error creating new profile entry", "error", result.Error)
		return schema.ErrDbAccessFailed
	}

	return nil
}

func addInitialAdminToDb(db *gorm.DB, userId uuid.UUID, fullName, email string, password []byte) error {
	user := schema.User{
		Id:      userId,
		Email:   email,
		IsAdmin: true,
	}
	if password != nil {
		user.Password = password
	}

	err := db.Transaction(func(txn *gorm.DB) error {
		var existingUser schema.User
		result := txn.Limit(1).Find(&existingUser, "id = ? or email = ?", userId, email)
		if result.Error != nil {
			slog.Error("sql error checking if admin has already been added", "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected == 0 {
			if err := createUserWithProfile(txn, user, fullName); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error adding initial admin to db: %w", err)
	}

	return nil
}

// SeedDemoCompany ensures the shared demo workspace exists under its reserved
// id so that new users always have a workspace to join.
func SeedDemoCompany(db *gorm.DB) error {
	err := db.Transaction(func(txn *gorm.DB) error {
		var existing schema.Company
		result := txn.Limit(1).Find(&existing, "id = ?", schema.DemoCompanyId)
		if result.Error != nil {
			slog.Error("sql error checking for demo company", "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected == 0 {
			company := schema.Company{Id: schema.DemoCompanyId, Name: "Demo Company", CreatedAt: time.Now().UTC()}
			if result := txn.Create(&company); result.Error != nil {
				slog.Error("sql error creating demo company", "error", result.Error)
				return schema.ErrDbAccessFailed
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error seeding demo company: %w", err)
	}

	return nil
}

type requestContextKey string

const UserRequestContextKey requestContextKey = "user"
