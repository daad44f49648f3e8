package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sitetrack/tracker/auth"
	"sitetrack/tracker/schema"
	"sitetrack/utils"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CompanyService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *CompanyService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Get("/list", s.List)
		r.Post("/create", s.Create)
	})

	return r
}

type CompanyInfo struct {
	Id   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (s *CompanyService) List(w http.ResponseWriter, r *http.Request) {
	var companies []schema.Company
	result := s.db.Order("name").Find(&companies)
	if result.Error != nil {
		slog.Error("sql error listing companies", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing workspaces: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]CompanyInfo, 0, len(companies))
	for _, company := range companies {
		infos = append(infos, CompanyInfo{Id: company.Id, Name: company.Name})
	}
	utils.WriteJsonResponse(w, infos)
}

type createCompanyRequest struct {
	Name string `json:"name"`
}

type createCompanyResponse struct {
	CompanyId uuid.UUID `json:"company_id"`
}

// Create creates a new workspace and makes the creator its admin.
func (s *CompanyService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createCompanyRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	name := strings.TrimSpace(params.Name)
	if len(name) < 2 {
		http.Error(w, "workspace name must be at least 2 characters", http.StatusUnprocessableEntity)
		return
	}

	createdBy := user.Id
	company := schema.Company{
		Id:        uuid.New(),
		Name:      name,
		CreatedBy: &createdBy,
		CreatedAt: time.Now().UTC(),
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		result := txn.Create(&company)
		if result.Error != nil {
			slog.Error("sql error creating new company entry", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		profile, err := getProfileForUser(txn, user.Id)
		if err != nil {
			return err
		}

		profile.CompanyId = &company.Id
		profile.Role = schema.RoleAdmin

		result = txn.Save(&profile)
		if result.Error != nil {
			slog.Error("sql error assigning creator to new company", "user_id", user.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, schema.ErrProfileNotFound) {
			http.Error(w, err.Error(), GetResponseCode(err))
			return
		}
		http.Error(w, fmt.Sprintf("error creating workspace: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("created new workspace", "company_id", company.Id, "created_by", user.Id)

	utils.WriteJsonResponse(w, createCompanyResponse{CompanyId: company.Id})
}
