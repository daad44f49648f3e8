package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sitetrack/tracker/auth"
	"sitetrack/tracker/schema"
	"sitetrack/utils"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if s.userAuth.AllowDirectSignup() {
			r.Post("/signup", s.Signup)
		}

		r.Get("/login", s.LoginWithEmail)
		r.Post("/login-with-token", s.LoginWithToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Get("/info", s.Info)
		r.Get("/profile", s.Profile)
		r.Post("/profile", s.UpdateProfile)
		r.Put("/profile/company", s.UpdateCompany)
	})

	return r
}

type signupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	UserId uuid.UUID `json:"user_id"`
}

func (s *UserService) Signup(w http.ResponseWriter, r *http.Request) {
	var params signupRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if !s.userAuth.AllowDirectSignup() {
		http.Error(w, "direct signup is not supported for this identity provider", http.StatusBadRequest)
		return
	}

	userId, err := s.userAuth.CreateUser(params.FullName, params.Email, params.Password)
	if err != nil {
		responseCode := http.StatusInternalServerError
		if errors.Is(err, auth.ErrEmailAlreadyInUse) {
			responseCode = http.StatusConflict
		}
		http.Error(w, err.Error(), responseCode)
		return
	}

	res := signupResponse{UserId: userId}
	utils.WriteJsonResponse(w, res)
}

type loginResponse struct {
	UserId      uuid.UUID `json:"user_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *UserService) LoginWithEmail(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	login, err := s.userAuth.LoginWithEmail(email, password)
	if err != nil {
		responseCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, auth.ErrUserNotFoundWithEmail):
			responseCode = http.StatusNotFound
		case errors.Is(err, auth.ErrInvalidCredentials):
			responseCode = http.StatusUnauthorized
		}
		http.Error(w, fmt.Sprintf("login failed: %v", err), responseCode)
		return
	}

	res := loginResponse{UserId: login.UserId, AccessToken: login.AccessToken, ExpiresAt: login.ExpiresAt}
	utils.WriteJsonResponse(w, res)
}

type loginWithTokenRequest struct {
	AccessToken string `json:"access_token"`
}

// LoginWithToken accepts a token obtained from an external OAuth flow and
// exchanges it for a local session.
func (s *UserService) LoginWithToken(w http.ResponseWriter, r *http.Request) {
	var params loginWithTokenRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	login, err := s.userAuth.LoginWithToken(params.AccessToken)
	if err != nil {
		http.Error(w, fmt.Sprintf("login failed: %v", err), http.StatusInternalServerError)
		return
	}

	res := loginResponse{UserId: login.UserId, AccessToken: login.AccessToken, ExpiresAt: login.ExpiresAt}
	utils.WriteJsonResponse(w, res)
}

type UserInfo struct {
	Id    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Admin bool      `json:"admin"`
}

func (s *UserService) Info(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, UserInfo{Id: user.Id, Email: user.Email, Admin: user.IsAdmin})
}

type profileCompany struct {
	Name string `json:"name"`
}

type ProfileInfo struct {
	Id        uuid.UUID       `json:"id"`
	FullName  *string         `json:"full_name"`
	Role      string          `json:"role"`
	CompanyId *uuid.UUID      `json:"company_id"`
	Companies *profileCompany `json:"companies"`
}

func convertToProfileInfo(profile *schema.Profile) ProfileInfo {
	info := ProfileInfo{
		Id:        profile.Id,
		FullName:  profile.FullName,
		Role:      profile.Role,
		CompanyId: profile.CompanyId,
	}
	if profile.Company != nil {
		info.Companies = &profileCompany{Name: profile.Company.Name}
	}
	return info
}

func (s *UserService) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	profile, err := schema.GetProfile(user.Id, s.db, true)
	if err != nil {
		if errors.Is(err, schema.ErrProfileNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting profile: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToProfileInfo(&profile))
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
}

func (s *UserService) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params updateProfileRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		profile, err := getProfileForUser(txn, user.Id)
		if err != nil {
			return err
		}

		profile.FullName = &params.FullName

		result := txn.Save(&profile)
		if result.Error != nil {
			slog.Error("sql error updating profile", "user_id", user.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating profile: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

type updateCompanyRequest struct {
	CompanyId uuid.UUID `json:"company_id"`
	Role      *string   `json:"role"`
}

// UpdateCompany joins or switches the user's workspace. A role may be
// supplied when joining, a plain switch keeps the existing role.
func (s *UserService) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params updateCompanyRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Role != nil {
		if err := schema.CheckValidRole(*params.Role); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkCompanyExists(txn, params.CompanyId); err != nil {
			return err
		}

		profile, err := getProfileForUser(txn, user.Id)
		if err != nil {
			return err
		}

		companyId := params.CompanyId
		profile.CompanyId = &companyId
		if params.Role != nil {
			profile.Role = *params.Role
		}

		result := txn.Save(&profile)
		if result.Error != nil {
			slog.Error("sql error updating profile company", "user_id", user.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating workspace: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("user switched workspace", "user_id", user.Id, "company_id", params.CompanyId)

	utils.WriteSuccess(w)
}
