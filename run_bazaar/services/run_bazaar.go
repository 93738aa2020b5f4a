package services

import (
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"time"

	"rlhf_platform/run_bazaar/auth"
	"rlhf_platform/run_bazaar/orchestrator"
	"rlhf_platform/run_bazaar/schema"
	"rlhf_platform/run_bazaar/storage"
	"rlhf_platform/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

type RunBazaar struct {
	user      UserService
	run       RunService
	telemetry TelemetryService

	db                 *gorm.DB
	orchestratorClient orchestrator.Client
	stop               chan bool
}

func NewRunBazaar(
	db *gorm.DB, orchestratorClient orchestrator.Client, storage storage.Storage, userAuth auth.IdentityProvider, variables Variables, secret []byte,
) RunBazaar {
	jobAuth := auth.NewJwtManager(slices.Concat(secret, []byte("job")))

	return RunBazaar{
		user: UserService{db: db, userAuth: userAuth},
		run: RunService{
			db:                 db,
			orchestratorClient: orchestratorClient,
			storage:            storage,
			userAuth:           userAuth,
			jobAuth:            jobAuth,
			variables:          variables,
		},
		telemetry:          TelemetryService{},
		db:                 db,
		orchestratorClient: orchestratorClient,
		stop:               make(chan bool, 1),
	}
}

func (m *RunBazaar) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/user", m.user.Routes())
	r.Mount("/runs", m.run.Routes())
	r.Mount("/telemetry", m.telemetry.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}

func (m *RunBazaar) syncTrainStatus(run *schema.Run) {
	if run.TrainStatus != schema.Starting && run.TrainStatus != schema.InProgress {
		return
	}
	jobInfo, err := m.orchestratorClient.JobInfo(run.TrainJobName())
	jobNotFound := errors.Is(err, orchestrator.ErrJobNotFound)

	if err != nil && !jobNotFound {
		slog.Error("status sync: train job info", "error", err)
		return
	}

	if jobInfo.Status == "dead" || jobNotFound {
		result := m.db.Model(run).Where("train_status = ?", run.TrainStatus).Update("train_status", schema.Failed)
		if result.Error != nil {
			slog.Error("status sync: sql error updating train status for failed run", "run_id", run.Id, "error", result.Error)
			return
		}
		slog.Info("status sync: updated train status to failed", "run_id", run.Id)
	}
}

func (m *RunBazaar) statusSync() {
	var runs []schema.Run

	result := m.db.
		Where("train_status IN ?", []string{schema.Starting, schema.InProgress}).
		Find(&runs)

	if result.Error != nil {
		slog.Error("status sync: sql error querying active runs", "error", result.Error)
		return
	}

	for _, run := range runs {
		m.syncTrainStatus(&run)
	}
}

func (m *RunBazaar) JobStatusSync(interval time.Duration) {
	slog.Info("status sync: starting")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.statusSync()
		case <-m.stop:
			slog.Info("status sync: process stopped")
			return
		}
	}
}

func (m *RunBazaar) StopJobStatusSync() {
	close(m.stop)
}
