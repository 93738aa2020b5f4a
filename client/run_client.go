package client

import (
	"fmt"
	"time"

	"rlhf_platform/run_bazaar/config"
	"rlhf_platform/run_bazaar/services"

	"github.com/google/uuid"
)

type RunClient struct {
	BaseClient
	runId uuid.UUID
}

func NewRunClient(baseUrl string, authToken string, runId uuid.UUID) RunClient {
	return RunClient{BaseClient: BaseClient{baseUrl: baseUrl, authToken: authToken}, runId: runId}
}

func (c *RunClient) RunId() uuid.UUID {
	return c.runId
}

func (c *RunClient) Status() (services.StatusResponse, error) {
	var res services.StatusResponse
	err := c.Get(fmt.Sprintf("/api/v1/runs/%v/status", c.runId)).Do(&res)
	return res, err
}

// AwaitTrain polls until the run completes, returning an error if the run
// fails or is stopped, or if the timeout is reached first.
func (c *RunClient) AwaitTrain(timeout time.Duration) error {
	check := time.Tick(2 * time.Second)
	stop := time.Tick(timeout)
	for {
		select {
		case <-check:
			status, err := c.Status()
			if err != nil {
				return err
			}
			if status.Status == "failed" || status.Status == "stopped" {
				return fmt.Errorf("train has status: %v", status.Status)
			}
			if status.Status == "complete" {
				return nil
			}
		case <-stop:
			return fmt.Errorf("timeout reached before train job completed")
		}
	}
}

type Logs struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

func (c *RunClient) TrainLogs() ([]Logs, error) {
	var res []Logs
	err := c.Get(fmt.Sprintf("/api/v1/runs/%v/logs", c.runId)).Do(&res)
	return res, err
}

func (c *RunClient) Config() (config.RunConfig, error) {
	var res config.RunConfig
	err := c.Get(fmt.Sprintf("/api/v1/runs/%v/config", c.runId)).Do(&res)
	return res, err
}

func (c *RunClient) Stop() error {
	return c.Post(fmt.Sprintf("/api/v1/runs/%v/stop", c.runId)).Do(nil)
}

func (c *RunClient) TrainReport() (interface{}, error) {
	var res interface{}
	err := c.Get(fmt.Sprintf("/api/v1/runs/%v/report", c.runId)).Do(&res)
	return res, err
}
