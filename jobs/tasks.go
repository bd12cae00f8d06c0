package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskFixAccountTypes runs the journal/account type corrector.
	TaskFixAccountTypes = "ledger:fix-account-types"
	// TaskFixPiggies clears stale piggy bank event references.
	TaskFixPiggies = "ledger:fix-piggies"
)

// CorrectionPayload is carried by every correction task.
type CorrectionPayload struct {
	Trigger string `json:"trigger"`
}

// NewFixAccountTypesTask constructs an Asynq task.
func NewFixAccountTypesTask(trigger string) (*asynq.Task, error) {
	return newCorrectionTask(TaskFixAccountTypes, trigger)
}

// NewFixPiggiesTask constructs an Asynq task.
func NewFixPiggiesTask(trigger string) (*asynq.Task, error) {
	return newCorrectionTask(TaskFixPiggies, trigger)
}

// NewTaskByName resolves a job name such as "fix-piggies" or a full task type.
func NewTaskByName(name, trigger string) (*asynq.Task, error) {
	switch strings.TrimPrefix(strings.TrimSpace(name), "ledger:") {
	case "fix-account-types":
		return NewFixAccountTypesTask(trigger)
	case "fix-piggies":
		return NewFixPiggiesTask(trigger)
	}
	return nil, fmt.Errorf("jobs: unsupported job %q", name)
}

func newCorrectionTask(taskType, trigger string) (*asynq.Task, error) {
	if trigger == "" {
		trigger = "manual"
	}
	data, err := json.Marshal(CorrectionPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}

func decodePayload(t *asynq.Task) (CorrectionPayload, error) {
	var payload CorrectionPayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
