package auth

import (
	"errors"
	"fmt"
	"net/http"

	"rlhf_platform/run_bazaar/schema"
	"rlhf_platform/utils"

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

type runPermission int // Private so that no other permissions can be defined

const (
	NoPermission    runPermission = 0
	ReadPermission  runPermission = 1
	WritePermission runPermission = 2
	OwnerPermission runPermission = 3
)

func runPermissionToString(perm runPermission) string {
	switch perm {
	case NoPermission:
		return "None"
	case ReadPermission:
		return "Read"
	case WritePermission:
		return "Write"
	case OwnerPermission:
		return "Owner"
	default:
		return "invalid permission"
	}
}

func GetRunPermissions(runId uuid.UUID, user schema.User, db *gorm.DB) (runPermission, error) {
	if user.IsAdmin {
		return OwnerPermission, nil
	}

	run, err := schema.GetRun(runId, db, false, false)
	if err != nil {
		return NoPermission, err
	}

	if run.UserId == user.Id {
		return OwnerPermission, nil
	}

	if run.Access == schema.Public {
		if run.DefaultPermission == schema.WritePerm {
			return WritePermission, nil
		}
		return ReadPermission, nil
	}

	return NoPermission, nil
}

func RunPermissionOnly(db *gorm.DB, minPermission runPermission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			runId, err := utils.URLParamUUID(r, "run_id")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			permission, err := GetRunPermissions(runId, user, db)
			if err != nil {
				if errors.Is(err, schema.ErrRunNotFound) {
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

			required, actual := runPermissionToString(minPermission), runPermissionToString(permission)
			http.Error(w, fmt.Sprintf("user %v does not have required permission for run %v (required=%v, actual=%v)", user.Id, runId, required, actual), http.StatusForbidden)
		}
		return http.HandlerFunc(hfn)
	}
}
