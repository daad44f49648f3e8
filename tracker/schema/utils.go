package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrCompanyNotFound = errors.New("company not found")
	ErrRequestNotFound = errors.New("material request not found")
	ErrDbAccessFailed  = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetUserByEmail(email string, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user by email", "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetProfile(userId uuid.UUID, db *gorm.DB, loadCompany bool) (Profile, error) {
	var profile Profile

	var result *gorm.DB = db
	if loadCompany {
		result = result.Preload("Company")
	}
	result = result.First(&profile, "id = ?", userId)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return profile, ErrProfileNotFound
		}
		slog.Error("sql error in get profile", "user_id", userId, "error", result.Error)
		return profile, ErrDbAccessFailed
	}

	return profile, nil
}

func GetCompany(companyId uuid.UUID, db *gorm.DB) (Company, error) {
	var company Company

	result := db.First(&company, "id = ?", companyId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return company, ErrCompanyNotFound
		}
		slog.Error("sql error in get company", "company_id", companyId, "error", result.Error)
		return company, ErrDbAccessFailed
	}

	return company, nil
}

func GetRequest(requestId uuid.UUID, db *gorm.DB, loadRequester bool) (MaterialRequest, error) {
	var request MaterialRequest

	var result *gorm.DB = db
	if loadRequester {
		result = result.Preload("Requester")
	}
	result = result.First(&request, "id = ?", requestId)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return request, ErrRequestNotFound
		}
		slog.Error("sql error in get request", "request_id", requestId, "error", result.Error)
		return request, ErrDbAccessFailed
	}

	return request, nil
}
