package client

import (
	"bytes"
	"fmt"
	"mime/multipart"

	"rlhf_platform/run_bazaar/services"

	"github.com/google/uuid"
)

type PlatformClient struct {
	BaseClient
	userId string
}

func New(baseUrl string) *PlatformClient {
	return &PlatformClient{BaseClient: BaseClient{baseUrl: baseUrl}}
}

func (c *PlatformClient) Signup(username, email, password string) error {
	body := map[string]string{
		"email": email, "username": username, "password": password,
	}

	return c.Post("/api/v1/user/signup").Json(body).Do(nil)
}

func (c *PlatformClient) Login(email, password string) error {
	var data map[string]string
	err := c.Get("/api/v1/user/login").Login(email, password).Do(&data)
	if err != nil {
		return err
	}

	c.authToken = data["access_token"]
	c.userId = data["user_id"]

	return nil
}

// UploadDataset uploads local prompt dataset files to shared storage so they
// can be referenced from run configs. Returns the upload id.
func (c *PlatformClient) UploadDataset(paths []string, subDir string) (uuid.UUID, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	if err := addFilesToMultipart(writer, paths); err != nil {
		return uuid.UUID{}, err
	}

	if err := writer.Close(); err != nil {
		return uuid.UUID{}, fmt.Errorf("error closing multipart writer: %w", err)
	}

	req := c.Post("/api/v1/runs/upload-data").Header("Content-Type", writer.FormDataContentType()).Body(body)
	if subDir != "" {
		req = req.Param("sub_dir", subDir)
	}

	var res map[string]uuid.UUID
	if err := req.Do(&res); err != nil {
		return uuid.UUID{}, err
	}

	return res["upload_id"], nil
}

type SubmitPPOArgs struct {
	RunName   string
	Config    string
	Overrides map[string]interface{}
	BaseRun   *RunClient
}

func (c *PlatformClient) SubmitPPO(args SubmitPPOArgs) (*RunClient, error) {
	body := map[string]interface{}{
		"run_name":  args.RunName,
		"config":    args.Config,
		"overrides": args.Overrides,
	}
	if args.BaseRun != nil {
		body["base_run_id"] = args.BaseRun.runId
	}

	var res map[string]uuid.UUID
	err := c.Post("/api/v1/runs/ppo").Json(body).Do(&res)
	if err != nil {
		return nil, err
	}

	return &RunClient{BaseClient: c.BaseClient, runId: res["run_id"]}, nil
}

func (c *PlatformClient) ListRuns() ([]services.RunInfo, error) {
	var res []services.RunInfo
	err := c.Get("/api/v1/runs/list").Do(&res)
	return res, err
}
