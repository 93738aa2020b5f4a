package integrationtests

import (
	"strings"
	"testing"
	"time"

	"rlhf_platform/client"
)

func TestPPOSoftpromptRun(t *testing.T) {
	c := getClient(t)

	uploadId, err := c.UploadDataset([]string{"./data/prompts.jsonl"}, "")
	if err != nil {
		t.Fatal(err)
	}

	run, err := c.SubmitPPO(client.SubmitPPOArgs{
		RunName: randomName("ppo-softprompt"),
		Config:  exampleConfig(t),
		Overrides: map[string]interface{}{
			"train.total_steps":         200,
			"train.lr_decay_steps":      100,
			"train.checkpoint_interval": 100,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Logf("submitted run %v with dataset upload %v", run.RunId(), uploadId)

	err = run.AwaitTrain(30 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	report, err := run.TrainReport()
	if err != nil {
		t.Fatal(err)
	}
	if report == nil {
		t.Fatal("expected a train report for completed run")
	}
}

func TestPPORunWithBaseRun(t *testing.T) {
	c := getClient(t)

	base, err := c.SubmitPPO(client.SubmitPPOArgs{
		RunName: randomName("ppo-base"),
		Config:  exampleConfig(t),
		Overrides: map[string]interface{}{
			"train.total_steps":    200,
			"train.lr_decay_steps": 100,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	err = base.AwaitTrain(30 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	derived, err := c.SubmitPPO(client.SubmitPPOArgs{
		RunName: randomName("ppo-derived"),
		Config:  exampleConfig(t),
		BaseRun: base,
	})
	if err != nil {
		t.Fatal(err)
	}

	err = derived.AwaitTrain(30 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}
}

func TestPPORejectsInvalidOverrides(t *testing.T) {
	c := getClient(t)

	_, err := c.SubmitPPO(client.SubmitPPOArgs{
		RunName: randomName("ppo-invalid"),
		Config:  exampleConfig(t),
		Overrides: map[string]interface{}{
			"method.gen_kwargs.min_length": 100,
		},
	})
	if err == nil || !strings.Contains(err.Error(), "method.gen_kwargs.min_length") {
		t.Fatalf("expected validation error naming the offending field: %v", err)
	}
}
