package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"rlhf_platform/run_bazaar/auth"
	"rlhf_platform/run_bazaar/config"
	"rlhf_platform/run_bazaar/orchestrator"
	"rlhf_platform/run_bazaar/schema"
	"rlhf_platform/run_bazaar/storage"
	"rlhf_platform/utils"
	"rlhf_platform/utils/logging"

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

func getJobLogs(db *gorm.DB, runId uuid.UUID) ([]string, []string, error) {
	var logs []schema.JobLog

	result := db.Where("run_id = ?", runId).Find(&logs)
	if result.Error != nil {
		slog.Error("sql error listing job logs", "error", result.Error)
		return nil, nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	errors := make([]string, 0)
	warnings := make([]string, 0)
	for _, log := range logs {
		if log.Level == "error" {
			errors = append(errors, log.Message)
		} else if log.Level == "warning" {
			warnings = append(warnings, log.Message)
		}
	}

	return errors, warnings, nil
}

type StatusResponse struct {
	Status   string   `json:"status"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func getStatusHandler(w http.ResponseWriter, runId uuid.UUID, db *gorm.DB) {
	slog.Info("getting status for run", "run_id", runId, "code", logging.RUN_STATUS)

	run, err := schema.GetRun(runId, db, false, false)
	if err != nil {
		if errors.Is(err, schema.ErrRunNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("retrieving run status: %v", err), http.StatusInternalServerError)
		return
	}

	errors, warnings, err := getJobLogs(db, runId)
	if err != nil {
		http.Error(w, fmt.Sprintf("retrieving run job messages: %v", err), GetResponseCode(err))
		return
	}

	res := StatusResponse{Status: run.TrainStatus, Errors: errors, Warnings: warnings}

	slog.Info("got status for run successfully", "run_id", runId, "status", res.Status, "code", logging.RUN_STATUS)

	utils.WriteJsonResponse(w, res)
}

type updateStatusRequest struct {
	Status   string                 `json:"status"`
	Metadata map[string]interface{} `json:"metadata"`
}

func updateStatusHandler(w http.ResponseWriter, r *http.Request, db *gorm.DB) {
	runId, err := auth.RunIdFromContext(r)
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

	slog.Info("updating status for run", "status", params.Status, "run_id", runId, "code", logging.RUN_STATUS)

	err = db.Transaction(func(txn *gorm.DB) error {
		if err := checkRunExists(txn, runId); err != nil {
			return err
		}

		result := txn.Model(&schema.Run{Id: runId}).Update("train_status", params.Status)
		if result.Error != nil {
			slog.Error("sql error updating run status", "status", params.Status, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if len(params.Metadata) > 0 {
			metadataJson, err := json.Marshal(params.Metadata)
			if err != nil {
				return CodedError(fmt.Errorf("metadata cannot be serialized to json: %w", err), http.StatusBadRequest)
			}

			result := txn.Save(&schema.RunAttribute{RunId: runId, Key: "metadata", Value: string(metadataJson)})
			if result.Error != nil {
				slog.Error("sql error adding run metadata attribute", "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}
		return nil
	})

	if err != nil {
		slog.Error("error updating run status", "error", err)
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	slog.Info("updated status for run successfully", "status", params.Status, "run_id", runId, "code", logging.RUN_STATUS)

	utils.WriteSuccess(w)
}

type jobLogRequest struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func jobLogHandler(w http.ResponseWriter, r *http.Request, db *gorm.DB) {
	runId, err := auth.RunIdFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params jobLogRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Level != "warning" && params.Level != "error" {
		http.Error(w, fmt.Sprintf("invalid log level '%v', must be 'warning' or 'error'", params.Level), http.StatusUnprocessableEntity)
		return
	}

	log := schema.JobLog{Id: uuid.New(), RunId: runId, Level: params.Level, Message: params.Message}
	result := db.Create(&log)
	if result.Error != nil {
		slog.Error("sql error creating job log", "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating job log: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteSuccess(w)
}

func getLogsHandler(w http.ResponseWriter, r *http.Request, db *gorm.DB, c orchestrator.Client) {
	runId, err := utils.URLParamUUID(r, "run_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	run, err := schema.GetRun(runId, db, false, false)
	if err != nil {
		if errors.Is(err, schema.ErrRunNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting logs: %v", err), http.StatusInternalServerError)
		return
	}

	logs, err := c.JobLogs(run.TrainJobName())
	if err != nil {
		slog.Error("error retrieving job logs from orchestrator", "error", err)
		http.Error(w, "error getting logs from orchestrator", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, logs)
}

// saveConfig writes the canonical json form of the validated config to shared
// storage where the train job reads it. The returned path is absolute because
// the train jobs do not use the storage interface.
func saveConfig(runId uuid.UUID, cfg config.RunConfig, store storage.Storage) (string, error) {
	configData, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		slog.Error("error encoding run config", "error", err)
		return "", CodedError(errors.New("error encoding run config"), http.StatusInternalServerError)
	}

	configPath := storage.RunConfigPath(runId)
	err = store.Write(configPath, bytes.NewReader(configData))
	if err != nil {
		slog.Error("error saving run config", "error", err)
		return "", CodedError(errors.New("error saving run config"), http.StatusInternalServerError)
	}

	return filepath.Join(store.Location(), configPath), nil
}

func checkForDuplicateRun(db *gorm.DB, runName string, userId uuid.UUID) error {
	var duplicateRun schema.Run
	result := db.Limit(1).Find(&duplicateRun, "user_id = ? AND name = ?", userId, runName)
	if result.Error != nil {
		slog.Error("sql error checking for duplicate run", "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	if result.RowsAffected != 0 {
		return CodedError(fmt.Errorf("a run with name %v already exists for user %v", runName, userId), http.StatusConflict)
	}
	return nil
}

func newRun(runId uuid.UUID, runName, method string, baseRunId *uuid.UUID, userId uuid.UUID) schema.Run {
	return schema.Run{
		Id:                runId,
		Name:              runName,
		Method:            method,
		SubmittedDate:     time.Now().UTC(),
		TrainStatus:       schema.NotStarted,
		Access:            schema.Private,
		DefaultPermission: schema.ReadPerm,
		BaseRunId:         baseRunId,
		UserId:            userId,
	}
}

func saveRun(txn *gorm.DB, run schema.Run, user schema.User) error {
	if err := checkForDuplicateRun(txn, run.Name, run.UserId); err != nil {
		return err
	}

	if run.BaseRunId != nil {
		baseRun, err := schema.GetRun(*run.BaseRunId, txn, false, false)
		if err != nil {
			if errors.Is(err, schema.ErrRunNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(fmt.Errorf("error retrieving base run: %w", err), http.StatusInternalServerError)
		}
		if baseRun.Method != run.Method {
			return CodedError(fmt.Errorf("specified base run has method %v but new run has method %v", baseRun.Method, run.Method), http.StatusUnprocessableEntity)
		}

		perm, err := auth.GetRunPermissions(baseRun.Id, user, txn)
		if err != nil {
			if errors.Is(err, schema.ErrRunNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(fmt.Errorf("error retrieving permissions for base run %v: %w", baseRun.Id, err), http.StatusInternalServerError)
		}

		if perm < auth.ReadPermission {
			return CodedError(fmt.Errorf("user %v does not have permission to access base run %v", run.UserId, baseRun.Id), http.StatusForbidden)
		}

		if baseRun.TrainStatus != schema.Complete {
			return CodedError(errors.New("base run training is not complete, training must be completed before use as base run"), http.StatusUnprocessableEntity)
		}
	}

	result := txn.Create(&run)
	if result.Error != nil {
		slog.Error("sql error creating new run entry", "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return nil
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
		used := (stats.TotalBytes - stats.FreeBytes) / oneMib
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

func checkUserExists(txn *gorm.DB, userId uuid.UUID) error {
	if _, err := schema.GetUser(userId, txn); err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkRunExists(txn *gorm.DB, runId uuid.UUID) error {
	if _, err := schema.GetRun(runId, txn, false, false); err != nil {
		if errors.Is(err, schema.ErrRunNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}
