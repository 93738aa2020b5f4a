package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrRunNotFound    = errors.New("run not found")
	ErrDbAccessFailed = errors.New("db access failed")
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

func GetRun(runId uuid.UUID, db *gorm.DB, loadAttrs, loadUser bool) (Run, error) {
	var run Run

	var result *gorm.DB = db
	if loadAttrs {
		result = result.Preload("Attributes")
	}
	if loadUser {
		result = result.Preload("User")
	}
	result = result.First(&run, "id = ?", runId)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return run, ErrRunNotFound
		}
		slog.Error("sql error in get run", "run_id", runId, "error", result.Error)
		return run, ErrDbAccessFailed
	}

	return run, nil
}
