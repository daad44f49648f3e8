package auth

import (
	"errors"
	"fmt"
	"net/http"
	"sitetrack/tracker/schema"
	"sitetrack/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func AdminOnly(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if !user.IsAdmin {
				http.Error(w, fmt.Sprintf("user %v is not an admin", user.Id), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

type requestPermission int // Private so that no other permissions can be defined

const (
	NoPermission     requestPermission = 0
	ReadPermission   requestPermission = 1
	WritePermission  requestPermission = 2
	ManagePermission requestPermission = 3
)

func requestPermissionToString(perm requestPermission) string {
	switch perm {
	case NoPermission:
		return "None"
	case ReadPermission:
		return "Read"
	case WritePermission:
		return "Write"
	case ManagePermission:
		return "Manage"
	default:
		return "invalid permission"
	}
}

// GetRequestPermissions resolves what a user may do with a material request.
// Members of the owning workspace can read it, the requester can edit it, and
// workspace admins and foremen can additionally change its status.
func GetRequestPermissions(requestId uuid.UUID, user schema.User, db *gorm.DB) (requestPermission, error) {
	if user.IsAdmin {
		return ManagePermission, nil
	}

	request, err := schema.GetRequest(requestId, db, false)
	if err != nil {
		return NoPermission, err
	}

	profile, err := schema.GetProfile(user.Id, db, false)
	if err != nil {
		if errors.Is(err, schema.ErrProfileNotFound) {
			return NoPermission, nil
		}
		return NoPermission, err
	}

	if profile.CompanyId == nil || *profile.CompanyId != request.CompanyId {
		return NoPermission, nil
	}

	if profile.Role == schema.RoleAdmin || profile.Role == schema.RoleForeman {
		return ManagePermission, nil
	}

	if request.RequestedBy == user.Id {
		return WritePermission, nil
	}

	return ReadPermission, nil
}

func RequestPermissionOnly(db *gorm.DB, minPermission requestPermission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			requestId, err := utils.URLParamUUID(r, "request_id")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			permission, err := GetRequestPermissions(requestId, user, db)
			if err != nil {
				if errors.Is(err, schema.ErrRequestNotFound) {
					http.Error(w, err.Error(), http.StatusNotFound)
					return
				}
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if permission >= minPermission {
				next.ServeHTTP(w, r)
				return
			}

			required, actual := requestPermissionToString(minPermission), requestPermissionToString(permission)
			http.Error(w, fmt.Sprintf("user %v does not have required permission for request %v (required=%v, actual=%v)", user.Id, requestId, required, actual), http.StatusForbidden)
		}
		return http.HandlerFunc(hfn)
	}
}
