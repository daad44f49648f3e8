package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sitetrack/tracker/schema"
	"sitetrack/tracker/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

// ErrInvalidWorkspace is returned when a workspace id references no company.
// It stands in for the foreign key violation a direct insert would raise.
var ErrInvalidWorkspace = errors.New("Invalid Workspace ID. Please check with your Admin.")

func checkCompanyExists(txn *gorm.DB, companyId uuid.UUID) error {
	if _, err := schema.GetCompany(companyId, txn); err != nil {
		if errors.Is(err, schema.ErrCompanyNotFound) {
			return CodedError(ErrInvalidWorkspace, http.StatusUnprocessableEntity)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkRequestExists(txn *gorm.DB, requestId uuid.UUID) error {
	if _, err := schema.GetRequest(requestId, txn, false); err != nil {
		if errors.Is(err, schema.ErrRequestNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func getProfileForUser(txn *gorm.DB, userId uuid.UUID) (schema.Profile, error) {
	profile, err := schema.GetProfile(userId, txn, false)
	if err != nil {
		if errors.Is(err, schema.ErrProfileNotFound) {
			return profile, CodedError(err, http.StatusNotFound)
		}
		return profile, CodedError(err, http.StatusInternalServerError)
	}
	return profile, nil
}

func checkDiskUsage(storage storage.Storage) error {
	stats, err := storage.Usage()
	if err != nil {
		slog.Error("unable to get disk usage from storage", "error", err)
		return CodedError(errors.New("unable to get disk usage"), http.StatusInternalServerError)
	}
	oneMib := uint64(1024 * 1024)
	// Either 20% disk needs to be free or 20Gb (in case the disk is very large)
	threshold := min(stats.TotalBytes/5, 20*1024*oneMib)
	if stats.FreeBytes < threshold {
		used := stats.UsedBytes() / oneMib
		total := stats.TotalBytes / oneMib
		delta := (threshold - stats.FreeBytes) / oneMib
		return CodedError(fmt.Errorf("insufficient disk space available, usage: %d/%d Mib, please clear %d Mib", used, total, delta), http.StatusInsufficientStorage)
	}
	return nil
}

func checkSufficientStorage(storage storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			if err := checkDiskUsage(storage); err != nil {
				slog.Error(err.Error())
				http.Error(w, err.Error(), GetResponseCode(err))
				return
			}
			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(handler)
	}
}
