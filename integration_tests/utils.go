package integrationtests

import (
	"log/slog"
	"os"
	"testing"

	"rlhf_platform/client"

	"github.com/google/uuid"
)

func getClient(t *testing.T) *client.PlatformClient {
	slog.SetLogLoggerLevel(slog.LevelDebug)

	client := client.New("http://localhost:80")
	err := client.Login("admin@mail.com", "password")
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func exampleConfig(t *testing.T) string {
	data, err := os.ReadFile("../configs/ppo_softprompt.yml")
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func randomName(base string) string {
	return base + "-" + uuid.New().String()
}
