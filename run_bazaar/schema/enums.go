package schema

import "fmt"

const (
	NotStarted = "not_started"
	Starting   = "starting"
	InProgress = "in_progress"
	Stopped    = "stopped"
	Complete   = "complete"
	Failed     = "failed"
)

func CheckValidStatus(status string) error {
	switch status {
	case NotStarted, Starting, InProgress, Stopped, Complete, Failed:
		return nil
	default:
		return fmt.Errorf("invalid status '%v'", status)
	}
}

const (
	Private = "private"
	Public  = "public"
)

const (
	ReadPerm  = "read"
	WritePerm = "write"
)
