package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sitetrack/tracker/auth"
	"sitetrack/tracker/schema"
	"sitetrack/tracker/storage"
	"sitetrack/utils"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// listRequestLimit caps the request list so that large workspaces do not pull
// their entire history on every refresh.
const listRequestLimit = 50

const fallbackRequesterName = "Personnel"

type RequestService struct {
	db       *gorm.DB
	storage  storage.Storage
	userAuth auth.IdentityProvider
}

func (s *RequestService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Get("/list", s.List)
		r.Post("/create", s.Create)
		r.Get("/stats", s.Stats)
		r.Get("/export", s.Export)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.RequestPermissionOnly(s.db, auth.ManagePermission))

		r.Post("/{request_id}/status", s.UpdateStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.RequestPermissionOnly(s.db, auth.WritePermission))

		r.Put("/{request_id}", s.Update)

		r.With(checkSufficientStorage(s.storage)).Post("/{request_id}/image", s.UploadImage)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.RequestPermissionOnly(s.db, auth.ReadPermission))

		r.Get("/{request_id}/image", s.DownloadImage)
	})

	return r
}

type RequestInfo struct {
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
	UpdatedAt       time.Time `json:"updated_at"`
}

func convertToRequestInfo(request *schema.MaterialRequest) RequestInfo {
	name := fallbackRequesterName
	if request.Requester != nil && request.Requester.FullName != nil && *request.Requester.FullName != "" {
		name = *request.Requester.FullName
	}

	return RequestInfo{
		Id:              request.Id,
		CompanyId:       request.CompanyId,
		RequestedBy:     request.RequestedBy,
		RequestedByName: name,
		MaterialName:    request.MaterialName,
		Quantity:        request.Quantity,
		Unit:            request.Unit,
		Priority:        request.Priority,
		Status:          request.Status,
		Notes:           request.Notes,
		ImageUrl:        request.ImageUrl,
		RequestedAt:     request.RequestedAt,
		UpdatedAt:       request.UpdatedAt,
	}
}

// activeCompany resolves the workspace the request belongs to. Users without
// a workspace get an empty result rather than an error so that the client can
// render its empty state.
func (s *RequestService) activeCompany(w http.ResponseWriter, r *http.Request) (*uuid.UUID, bool) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}

	profile, err := schema.GetProfile(user.Id, s.db, false)
	if err != nil {
		if errors.Is(err, schema.ErrProfileNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return nil, false
		}
		http.Error(w, fmt.Sprintf("error loading profile: %v", err), http.StatusInternalServerError)
		return nil, false
	}

	return profile.CompanyId, true
}

func (s *RequestService) listForCompany(companyId uuid.UUID) ([]RequestInfo, error) {
	var requests []schema.MaterialRequest
	result := s.db.Preload("Requester").
		Where("company_id = ?", companyId).
		Order("requested_at desc").
		Limit(listRequestLimit).
		Find(&requests)
	if result.Error != nil {
		slog.Error("sql error listing requests", "company_id", companyId, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	infos := make([]RequestInfo, 0, len(requests))
	for _, request := range requests {
		infos = append(infos, convertToRequestInfo(&request))
	}
	return infos, nil
}

func (s *RequestService) List(w http.ResponseWriter, r *http.Request) {
	companyId, ok := s.activeCompany(w, r)
	if !ok {
		return
	}
	if companyId == nil {
		utils.WriteJsonResponse(w, []RequestInfo{})
		return
	}

	infos, err := s.listForCompany(*companyId)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing requests: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, infos)
}

type newRequestRequest struct {
	MaterialName string  `json:"material_name"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	Priority     string  `json:"priority"`
	Notes        *string `json:"notes"`
}

func (params *newRequestRequest) validate() error {
	params.MaterialName = strings.TrimSpace(params.MaterialName)
	if len(params.MaterialName) < 2 {
		return errors.New("material name must be at least 2 characters")
	}
	if params.Quantity <= 0 {
		return errors.New("quantity must be greater than zero")
	}

	if params.Unit == "" {
		params.Unit = "pieces"
	} else if err := schema.CheckValidUnit(params.Unit); err != nil {
		return err
	}

	if params.Priority == "" {
		params.Priority = schema.PriorityMedium
	} else if err := schema.CheckValidPriority(params.Priority); err != nil {
		return err
	}

	return nil
}

func (s *RequestService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params newRequestRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	request := schema.MaterialRequest{
		Id:           uuid.New(),
		RequestedBy:  user.Id,
		MaterialName: params.MaterialName,
		Quantity:     params.Quantity,
		Unit:         params.Unit,
		Priority:     params.Priority,
		Status:       schema.StatusPending,
		Notes:        params.Notes,
		RequestedAt:  time.Now().UTC(),
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		profile, err := getProfileForUser(txn, user.Id)
		if err != nil {
			return err
		}
		if profile.CompanyId == nil {
			return CodedError(ErrInvalidWorkspace, http.StatusUnprocessableEntity)
		}

		if err := checkCompanyExists(txn, *profile.CompanyId); err != nil {
			return err
		}
		request.CompanyId = *profile.CompanyId

		result := txn.Create(&request)
		if result.Error != nil {
			slog.Error("sql error creating new request entry", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating request: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("created new material request", "request_id", request.Id, "company_id", request.CompanyId)

	created, err := schema.GetRequest(request.Id, s.db, true)
	if err != nil {
		http.Error(w, fmt.Sprintf("error loading created request: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToRequestInfo(&created))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *RequestService) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestId, err := utils.URLParamUUID(r, "request_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateStatusRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := schema.CheckValidStatus(params.Status); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkRequestExists(txn, requestId); err != nil {
			return err
		}

		result := txn.Model(&schema.MaterialRequest{Id: requestId}).Update("status", params.Status)
		if result.Error != nil {
			slog.Error("sql error updating request status", "request_id", requestId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating request status: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("updated request status", "request_id", requestId, "status", params.Status)

	updated, err := schema.GetRequest(requestId, s.db, true)
	if err != nil {
		http.Error(w, fmt.Sprintf("error loading updated request: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToRequestInfo(&updated))
}

type updateRequestRequest struct {
	MaterialName *string  `json:"material_name"`
	Quantity     *float64 `json:"quantity"`
	Unit         *string  `json:"unit"`
	Priority     *string  `json:"priority"`
	Notes        *string  `json:"notes"`
}

func (s *RequestService) Update(w http.ResponseWriter, r *http.Request) {
	requestId, err := utils.URLParamUUID(r, "request_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateRequestRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		request, err := schema.GetRequest(requestId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrRequestNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if params.MaterialName != nil {
			name := strings.TrimSpace(*params.MaterialName)
			if len(name) < 2 {
				return CodedError(errors.New("material name must be at least 2 characters"), http.StatusUnprocessableEntity)
			}
			request.MaterialName = name
		}
		if params.Quantity != nil {
			if *params.Quantity <= 0 {
				return CodedError(errors.New("quantity must be greater than zero"), http.StatusUnprocessableEntity)
			}
			request.Quantity = *params.Quantity
		}
		if params.Unit != nil {
			if err := schema.CheckValidUnit(*params.Unit); err != nil {
				return CodedError(err, http.StatusUnprocessableEntity)
			}
			request.Unit = *params.Unit
		}
		if params.Priority != nil {
			if err := schema.CheckValidPriority(*params.Priority); err != nil {
				return CodedError(err, http.StatusUnprocessableEntity)
			}
			request.Priority = *params.Priority
		}
		if params.Notes != nil {
			request.Notes = params.Notes
		}

		result := txn.Save(&request)
		if result.Error != nil {
			slog.Error("sql error updating request", "request_id", requestId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating request: %v", err), GetResponseCode(err))
		return
	}

	updated, err := schema.GetRequest(requestId, s.db, true)
	if err != nil {
		http.Error(w, fmt.Sprintf("error loading updated request: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToRequestInfo(&updated))
}

type RequestStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Urgent    int64 `json:"urgent"`
	Fulfilled int64 `json:"fulfilled"`
}

func (s *RequestService) Stats(w http.ResponseWriter, r *http.Request) {
	companyId, ok := s.activeCompany(w, r)
	if !ok {
		return
	}
	if companyId == nil {
		utils.WriteJsonResponse(w, RequestStats{})
		return
	}

	var stats RequestStats

	count := func(query *gorm.DB, dest *int64) error {
		result := query.Count(dest)
		if result.Error != nil {
			slog.Error("sql error counting requests", "company_id", companyId, "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		return nil
	}

	base := func() *gorm.DB {
		return s.db.Model(&schema.MaterialRequest{}).Where("company_id = ?", *companyId)
	}

	if err := count(base(), &stats.Total); err != nil {
		http.Error(w, fmt.Sprintf("error computing stats: %v", err), http.StatusInternalServerError)
		return
	}
	if err := count(base().Where("status = ?", schema.StatusPending), &stats.Pending); err != nil {
		http.Error(w, fmt.Sprintf("error computing stats: %v", err), http.StatusInternalServerError)
		return
	}
	if err := count(base().Where("priority = ?", schema.PriorityUrgent), &stats.Urgent); err != nil {
		http.Error(w, fmt.Sprintf("error computing stats: %v", err), http.StatusInternalServerError)
		return
	}
	if err := count(base().Where("status = ?", schema.StatusFulfilled), &stats.Fulfilled); err != nil {
		http.Error(w, fmt.Sprintf("error computing stats: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, stats)
}

// Export streams the active request list as a CSV download.
func (s *RequestService) Export(w http.ResponseWriter, r *http.Request) {
	companyId, ok := s.activeCompany(w, r)
	if !ok {
		return
	}

	infos := []RequestInfo{}
	if companyId != nil {
		var err error
		infos, err = s.listForCompany(*companyId)
		if err != nil {
			http.Error(w, fmt.Sprintf("error listing requests: %v", err), http.StatusInternalServerError)
			return
		}
	}

	filename := fmt.Sprintf("material_requests_%v.csv", time.Now().Format("20060102"))
	utils.WriteCsvAttachment(w, filename)

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Material", "Quantity", "Unit", "Priority", "Status", "Requested By", "Date", "Notes"}); err != nil {
		slog.Error("error writing csv header", "error", err)
		return
	}

	for _, info := range infos {
		notes := ""
		if info.Notes != nil {
			notes = *info.Notes
		}
		record := []string{
			info.MaterialName,
			strconv.FormatFloat(info.Quantity, 'f', -1, 64),
			info.Unit,
			info.Priority,
			info.Status,
			info.RequestedByName,
			info.RequestedAt.Format("2006-01-02"),
			notes,
		}
		if err := writer.Write(record); err != nil {
			slog.Error("error writing csv record", "request_id", info.Id, "error", err)
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Error("error flushing csv output", "error", err)
	}
}

func requestImagePath(requestId uuid.UUID) string {
	return filepath.Join("requests", requestId.String(), "photo.jpg")
}

func (s *RequestService) UploadImage(w http.ResponseWriter, r *http.Request) {
	requestId, err := utils.URLParamUUID(r, "request_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	path := requestImagePath(requestId)
	if err := s.storage.Write(path, r.Body); err != nil {
		http.Error(w, fmt.Sprintf("error saving image: %v", err), http.StatusInternalServerError)
		return
	}

	imageUrl := fmt.Sprintf("/api/v1/request/%v/image", requestId)

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkRequestExists(txn, requestId); err != nil {
			return err
		}

		result := txn.Model(&schema.MaterialRequest{Id: requestId}).Update("image_url", imageUrl)
		if result.Error != nil {
			slog.Error("sql error updating request image url", "request_id", requestId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error attaching image: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

func (s *RequestService) DownloadImage(w http.ResponseWriter, r *http.Request) {
	requestId, err := utils.URLParamUUID(r, "request_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	path := requestImagePath(requestId)
	exists, err := s.storage.Exists(path)
	if err != nil {
		http.Error(w, fmt.Sprintf("error checking for image: %v", err), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "no image attached to request", http.StatusNotFound)
		return
	}

	file, err := s.storage.Read(path)
	if err != nil {
		http.Error(w, fmt.Sprintf("error reading image: %v", err), http.StatusInternalServerError)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	if _, err := io.Copy(w, file); err != nil {
		slog.Error("error streaming image to client", "request_id", requestId, "error", err)
	}
}
