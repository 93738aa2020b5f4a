package storage

import (
	"io"
	"path/filepath"

	"github.com/google/uuid"
)

type UsageStats struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// Storage is the shared filesystem the platform and the train jobs both
// mount. Configs and uploaded datasets are exchanged through it.
type Storage interface {
	Read(path string) (io.ReadCloser, error)

	Write(path string, data io.Reader) error

	Append(path string, data io.Reader) error

	Delete(path string) error

	List(path string) ([]string, error)

	Exists(path string) (bool, error)

	Size(path string) (int64, error)

	Usage() (UsageStats, error)

	Location() string
}

func RunPath(runId uuid.UUID) string {
	return filepath.Join("runs", runId.String())
}

func RunConfigPath(runId uuid.UUID) string {
	return filepath.Join(RunPath(runId), "train_config.json")
}

func RunCheckpointPath(runId uuid.UUID) string {
	return filepath.Join(RunPath(runId), "checkpoints")
}

func UploadPath(uploadId uuid.UUID) string {
	return filepath.Join("uploads", uploadId.String())
}
