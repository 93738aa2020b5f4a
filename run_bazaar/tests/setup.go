package tests

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"rlhf_platform/run_bazaar/auth"
	"rlhf_platform/run_bazaar/orchestrator"
	"rlhf_platform/run_bazaar/schema"
	"rlhf_platform/run_bazaar/services"
	"rlhf_platform/run_bazaar/storage"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	runBazaar services.RunBazaar
	api       chi.Router
	storage   storage.Storage
	nomad     *NomadStub
	jobAuth   *auth.JwtManager
}

const (
	adminUsername = "admin123"
	adminEmail    = "admin123@mail.com"
	adminPassword = "admin_password123"
)

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(
		&schema.Run{}, &schema.RunAttribute{}, &schema.User{},
		&schema.JobLog{}, &schema.Upload{},
	)
	if err != nil {
		t.Fatal(err)
	}

	tmpDir := t.TempDir()

	storagePath := filepath.Join(tmpDir, "/storage")
	err = os.MkdirAll(storagePath, 0777)
	if err != nil {
		t.Fatalf("error creating storage directory: %v", err)
	}

	store := storage.NewSharedDisk(storagePath)
	nomadStub := newNomadStub()

	secret := []byte("290zcv02ai249")

	userAuth, err := auth.NewBasicIdentityProvider(
		db,
		auth.NewAuditLogger(new(bytes.Buffer)),
		auth.BasicProviderArgs{
			Secret:        secret,
			AdminUsername: adminUsername,
			AdminEmail:    adminEmail,
			AdminPassword: adminPassword,
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	runBazaar := services.NewRunBazaar(
		db, nomadStub, store,
		userAuth,
		services.Variables{
			BackendDriver: &orchestrator.LocalDriver{},
		},
		secret,
	)

	return &testEnv{
		runBazaar: runBazaar,
		api:       runBazaar.Routes(),
		storage:   store,
		nomad:     nomadStub,
		jobAuth:   auth.NewJwtManager(slices.Concat(secret, []byte("job"))),
	}
}

func (t *testEnv) newClient() client {
	return client{api: t.api}
}

func (t *testEnv) newUser(username string) (client, error) {
	c := t.newClient()
	login, err := c.signup(username, username+"@mail.com", username+"_password")
	if err != nil {
		return client{}, err
	}

	err = c.login(login)
	if err != nil {
		return client{}, err
	}

	return c, nil
}

func (t *testEnv) adminClient() (client, error) {
	c := t.newClient()
	err := c.login(loginInfo{Email: adminEmail, Password: adminPassword})
	return c, err
}

func getJobAuthToken(env *testEnv, t *testing.T, runId string) string {
	token, err := env.jobAuth.CreateRunJwt(mustParseUUID(t, runId), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func exampleConfig(t *testing.T) string {
	data, err := os.ReadFile("../../configs/ppo_softprompt.yml")
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
