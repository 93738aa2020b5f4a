package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rlhf_platform/run_bazaar/auth"
	"rlhf_platform/run_bazaar/config"
	"rlhf_platform/run_bazaar/orchestrator"
	"rlhf_platform/run_bazaar/registry"
	"rlhf_platform/run_bazaar/schema"
	"rlhf_platform/run_bazaar/storage"
	"rlhf_platform/utils"
	"rlhf_platform/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RunService struct {
	db                 *gorm.DB
	orchestratorClient orchestrator.Client
	storage            storage.Storage

	userAuth auth.IdentityProvider
	jobAuth  *auth.JwtManager

	variables Variables
}

func (s *RunService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Get("/list", s.List)

		r.Group(func(r chi.Router) {
			r.Use(checkSufficientStorage(s.storage))

			r.Post("/ppo", s.SubmitPPO)
			r.Post("/upload-data", s.UploadData)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.jobAuth.Verifier())
		r.Use(s.jobAuth.Authenticator())

		r.Post("/update-status", s.UpdateStatus)
		r.Post("/log", s.JobLog)
	})

	r.Route("/{run_id}", func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Group(func(r chi.Router) {
			r.Use(auth.RunPermissionOnly(s.db, auth.ReadPermission))

			r.Get("/status", s.GetStatus)
			r.Get("/report", s.TrainReport)
			r.Get("/logs", s.Logs)
			r.Get("/config", s.GetConfig)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RunPermissionOnly(s.db, auth.OwnerPermission))

			r.Post("/stop", s.StopRun)
		})
	})

	return r
}

type JobOptions struct {
	AllocationCores  int `json:"allocation_cores"`
	AllocationMemory int `json:"allocation_memory"`
}

func (o *JobOptions) ensureDefaults() {
	if o.AllocationCores == 0 {
		o.AllocationCores = 2
	}
	if o.AllocationMemory == 0 {
		o.AllocationMemory = 16000
	}
}

type submitRunRequest struct {
	RunName   string     `json:"run_name"`
	BaseRunId *uuid.UUID `json:"base_run_id"`

	// Config is the yaml run config document. Overrides are sparse dotted
	// paths (e.g. "train.batch_size") layered on top of it.
	Config    string                 `json:"config"`
	Overrides map[string]interface{} `json:"overrides"`

	JobOptions JobOptions `json:"job_options"`
}

type runResponse struct {
	RunId uuid.UUID `json:"run_id"`
}

func (s *RunService) SubmitPPO(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params submitRunRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.RunName == "" {
		http.Error(w, "run_name must be specified", http.StatusUnprocessableEntity)
		return
	}

	cfg, err := config.Load([]byte(params.Config))
	if err != nil {
		slog.Error("run config rejected", "run_name", params.RunName, "error", err, "code", logging.CONFIG_VALIDATE)
		configRejections.Inc()
		http.Error(w, fmt.Sprintf("invalid run config: %v", err), http.StatusUnprocessableEntity)
		return
	}

	if len(params.Overrides) > 0 {
		cfg, err = config.Merge(cfg, params.Overrides)
		if err != nil {
			slog.Error("run config overrides rejected", "run_name", params.RunName, "error", err, "code", logging.CONFIG_VALIDATE)
			configRejections.Inc()
			http.Error(w, fmt.Sprintf("invalid config overrides: %v", err), http.StatusUnprocessableEntity)
			return
		}
	}

	if err := registry.Validate(cfg); err != nil {
		slog.Error("run config names unknown components", "run_name", params.RunName, "error", err, "code", logging.CONFIG_VALIDATE)
		configRejections.Inc()
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	run := newRun(uuid.New(), params.RunName, cfg.Method.Name, params.BaseRunId, user.Id)

	slog.Info("starting training run", "run_id", run.Id, "run_name", params.RunName, "method", cfg.Method.Name, "code", logging.RUN_SUBMIT)

	jobToken, err := s.jobAuth.CreateRunJwt(run.Id, time.Hour*1000*24)
	if err != nil {
		slog.Error("error creating job token for train job", "error", err)
		http.Error(w, "error setting up train job", http.StatusInternalServerError)
		return
	}

	configPath, err := saveConfig(run.Id, cfg, s.storage)
	if err != nil {
		slog.Error("error saving run config", "error", err)
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	params.JobOptions.ensureDefaults()

	job := orchestrator.TrainJob{
		JobName:          run.TrainJobName(),
		RunId:            run.Id.String(),
		ConfigPath:       configPath,
		PlatformEndpoint: s.variables.PlatformEndpoint,
		RunToken:         jobToken,
		WandbApiKey:      s.variables.WandbApiKey,
		Driver:           s.variables.BackendDriver,
		Resources: orchestrator.Resources{
			AllocationCores:     params.JobOptions.AllocationCores,
			AllocationMemory:    params.JobOptions.AllocationMemory,
			AllocationMemoryMax: 60000,
		},
		CloudCredentials: s.variables.CloudCredentials,
	}

	err = s.saveRunAndStartJob(run, user, job)
	if err != nil {
		http.Error(w, fmt.Sprintf("error starting training run: %v", err), GetResponseCode(err))
		return
	}

	runsSubmitted.Inc()

	slog.Info("started training run successfully", "run_id", run.Id, "run_name", params.RunName, "code", logging.RUN_DISPATCH)

	utils.WriteJsonResponse(w, runResponse{RunId: run.Id})
}

func (s *RunService) saveRunAndStartJob(run schema.Run, user schema.User, job orchestrator.Job) error {
	err := s.db.Transaction(func(txn *gorm.DB) error {
		return saveRun(txn, run, user)
	})

	if err != nil {
		return err
	}

	err = s.orchestratorClient.StartJob(job)
	if err != nil {
		slog.Error("error starting train job", "error", err)
		return CodedError(errors.New("error starting train job on orchestrator"), http.StatusInternalServerError)
	}

	result := s.db.Model(&run).Update("train_status", schema.Starting)
	if result.Error != nil {
		slog.Error("sql error updating run train status", "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return nil
}

func getMultipartBoundary(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return "", CodedError(fmt.Errorf("missing 'Content-Type' header"), http.StatusBadRequest)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", CodedError(fmt.Errorf("error parsing media type in request: %w", err), http.StatusBadRequest)
	}
	if mediaType != "multipart/form-data" {
		return "", CodedError(fmt.Errorf("expected media type to be 'multipart/form-data'"), http.StatusBadRequest)
	}

	boundary, ok := params["boundary"]
	if !ok {
		return "", CodedError(fmt.Errorf("missing 'boundary' parameter in 'Content-Type' header"), http.StatusBadRequest)
	}

	return boundary, nil
}

// UploadData accepts multipart prompt dataset uploads that pipelines can read
// from shared storage.
func (s *RunService) UploadData(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	boundary, err := getMultipartBoundary(r)
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	uploadId := uuid.New()

	upload := schema.Upload{
		Id:         uploadId,
		UserId:     user.Id,
		UploadDate: time.Now().UTC(),
	}
	if err := s.db.Create(&upload).Error; err != nil {
		slog.Error("sql error creating upload", "error", err)
		http.Error(w, fmt.Sprintf("unable to create upload: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	filenames := make([]string, 0)

	reader := multipart.NewReader(r.Body, boundary)

	saveDir := storage.UploadPath(uploadId)
	if subDir := r.URL.Query().Get("sub_dir"); subDir != "" {
		ok, err := regexp.MatchString(`^\w+$`, subDir)
		if err != nil || !ok {
			http.Error(w, "invalid value for query parameter 'sub_dir', must be alphanumeric or _ characters only", http.StatusUnprocessableEntity)
			return
		}
		saveDir = filepath.Join(saveDir, subDir)
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("error parsing multipart request: %v", err), http.StatusBadRequest)
			return
		}
		defer part.Close()

		if part.FormName() == "files" {
			if part.FileName() == "" {
				http.Error(w, "invalid filename detected in upload files: filename cannot be empty", http.StatusUnprocessableEntity)
				return
			}

			filenames = append(filenames, part.FileName())

			newFilepath := filepath.Join(saveDir, part.FileName())
			err := s.storage.Write(newFilepath, part)
			if err != nil {
				slog.Error("error saving uploaded file", "error", err, "code", logging.RUN_UPLOAD)
				http.Error(w, "error saving uploaded file", http.StatusInternalServerError)
				return
			}
		}
	}

	upload.Files = strings.Join(filenames, ";")
	if err := s.db.Save(&upload).Error; err != nil {
		slog.Error("sql error updating upload file list", "error", err)
		http.Error(w, "error storing upload metadata", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, map[string]uuid.UUID{"upload_id": uploadId})
}

type RunInfo struct {
	RunId         uuid.UUID `json:"run_id"`
	RunName       string    `json:"run_name"`
	Method        string    `json:"method"`
	TrainStatus   string    `json:"train_status"`
	SubmittedDate time.Time `json:"submitted_date"`
}

func (s *RunService) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	query := s.db
	if !user.IsAdmin {
		query = query.Where("user_id = ? OR access = ?", user.Id, schema.Public)
	}

	var runs []schema.Run
	result := query.Order("submitted_date desc").Find(&runs)
	if result.Error != nil {
		slog.Error("sql error listing runs", "error", result.Error)
		http.Error(w, schema.ErrDbAccessFailed.Error(), http.StatusInternalServerError)
		return
	}

	infos := make([]RunInfo, 0, len(runs))
	for _, run := range runs {
		infos = append(infos, RunInfo{
			RunId:         run.Id,
			RunName:       run.Name,
			Method:        run.Method,
			TrainStatus:   run.TrainStatus,
			SubmittedDate: run.SubmittedDate,
		})
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *RunService) GetStatus(w http.ResponseWriter, r *http.Request) {
	runId, err := utils.URLParamUUID(r, "run_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	getStatusHandler(w, runId, s.db)
}

func (s *RunService) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	updateStatusHandler(w, r, s.db)
}

func (s *RunService) Logs(w http.ResponseWriter, r *http.Request) {
	getLogsHandler(w, r, s.db, s.orchestratorClient)
}

func (s *RunService) JobLog(w http.ResponseWriter, r *http.Request) {
	jobLogHandler(w, r, s.db)
}

// GetConfig returns the canonical json config the train job was dispatched
// with, including any overrides applied at submission.
func (s *RunService) GetConfig(w http.ResponseWriter, r *http.Request) {
	runId, err := utils.URLParamUUID(r, "run_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	configData, err := s.storage.Read(storage.RunConfigPath(runId))
	if err != nil {
		slog.Error("error reading run config", "run_id", runId, "error", err, "code", logging.CONFIG_LOAD)
		http.Error(w, "error reading run config", http.StatusInternalServerError)
		return
	}
	defer configData.Close()

	var cfg config.RunConfig
	if err := json.NewDecoder(configData).Decode(&cfg); err != nil {
		slog.Error("error parsing stored run config", "run_id", runId, "error", err, "code", logging.CONFIG_LOAD)
		http.Error(w, "error parsing stored run config", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, cfg)
}

func (s *RunService) StopRun(w http.ResponseWriter, r *http.Request) {
	runId, err := utils.URLParamUUID(r, "run_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	run, err := schema.GetRun(runId, s.db, false, false)
	if err != nil {
		if errors.Is(err, schema.ErrRunNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("stopping run", "run_id", runId, "code", logging.RUN_STOP)

	if err := orchestrator.StopJobIfExists(s.orchestratorClient, run.TrainJobName()); err != nil {
		slog.Error("error stopping train job", "run_id", runId, "error", err)
		http.Error(w, "error stopping train job", http.StatusInternalServerError)
		return
	}

	result := s.db.Model(&run).Update("train_status", schema.Stopped)
	if result.Error != nil {
		slog.Error("sql error updating run status to stopped", "error", result.Error)
		http.Error(w, schema.ErrDbAccessFailed.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteSuccess(w)
}

// TrainReport returns the most recent evaluation report the train job wrote
// to shared storage. Reports are named by unix timestamp.
func (s *RunService) TrainReport(w http.ResponseWriter, r *http.Request) {
	runId, err := utils.URLParamUUID(r, "run_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	run, err := schema.GetRun(runId, s.db, false, false)
	if err != nil {
		if errors.Is(err, schema.ErrRunNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error retrieving run info: %v", err), http.StatusInternalServerError)
		return
	}

	if run.TrainStatus != schema.Complete {
		http.Error(w, fmt.Sprintf("unable to retrieve train report, run %v has status %v", run.Id, run.TrainStatus), http.StatusUnprocessableEntity)
		return
	}

	reportDir := filepath.Join(storage.RunPath(run.Id), "train_reports")

	reports, err := s.storage.List(reportDir)
	if err != nil {
		slog.Error("error listing train reports", "run_id", runId, "error", err)
		http.Error(w, "error listing train reports", http.StatusInternalServerError)
		return
	}

	if len(reports) == 0 {
		http.Error(w, fmt.Sprintf("no train reports found for run %v", run.Id), http.StatusUnprocessableEntity)
		return
	}

	mostRecent := -1
	for _, report := range reports {
		timestamp, err := strconv.Atoi(strings.TrimSuffix(report, filepath.Ext(report)))
		if err != nil {
			slog.Error("unable to parse train report", "report", report, "error", err)
			continue
		}
		if timestamp > mostRecent {
			mostRecent = timestamp
		}
	}

	if mostRecent <= 0 {
		slog.Error("no processable train reports found", "run_id", run.Id)
		http.Error(w, fmt.Sprintf("no train reports found for run %v", run.Id), http.StatusUnprocessableEntity)
		return
	}

	reportData, err := s.storage.Read(filepath.Join(reportDir, fmt.Sprintf("%d.json", mostRecent)))
	if err != nil {
		slog.Error("error reading train report", "error", err)
		http.Error(w, "error reading train report", http.StatusInternalServerError)
		return
	}
	defer reportData.Close()

	var report interface{}
	err = json.NewDecoder(reportData).Decode(&report)
	if err != nil {
		slog.Error("error parsing train report", "error", err)
		http.Error(w, "error parsing train report", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, report)
}
