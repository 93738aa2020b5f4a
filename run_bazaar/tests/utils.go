package tests

import (
	"slices"
	"testing"

	"rlhf_platform/run_bazaar/services"

	"github.com/google/uuid"
)

func sortUserList(users []services.UserInfo) {
	slices.SortFunc(users, func(a, b services.UserInfo) int {
		if a.Username == b.Username {
			return 0
		}
		if a.Username < b.Username {
			return -1
		}
		return 1
	})
}

func sortRunList(runs []services.RunInfo) {
	slices.SortFunc(runs, func(a, b services.RunInfo) int {
		if a.RunName == b.RunName {
			return 0
		}
		if a.RunName < b.RunName {
			return -1
		}
		return 1
	})
}

func mustParseUUID(t *testing.T, id string) uuid.UUID {
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("invalid uuid '%v': %v", id, err)
	}
	return parsed
}
