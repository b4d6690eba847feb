package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskSweepMissedLeads    = "leads:sweep_missed"
	TaskExpireSubscriptions = "subscriptions:expire"
)

// Trigger sources recorded on task payloads.
const (
	TriggerCron       = "cron"
	TriggerLeadWindow = "lead_window"
)

// JobPayload identifies why a batch job was enqueued. The jobs themselves
// take no arguments; they work on whatever is due when they run.
type JobPayload struct {
	TriggeredBy string    `json:"triggeredBy"`
	LeadID      string    `json:"leadId,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}

func newJobTask(typeName string, payload JobPayload) (*asynq.Task, error) {
	if payload.RequestedAt.IsZero() {
		payload.RequestedAt = time.Now().UTC()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typeName, data), nil
}

func NewSweepMissedLeadsTask(payload JobPayload) (*asynq.Task, error) {
	return newJobTask(TaskSweepMissedLeads, payload)
}

func NewExpireSubscriptionsTask(payload JobPayload) (*asynq.Task, error) {
	return newJobTask(TaskExpireSubscriptions, payload)
}

// ParseJobPayload decodes a job payload. An empty payload is accepted so
// tasks registered without one still run.
func ParseJobPayload(task *asynq.Task) (JobPayload, error) {
	var payload JobPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return JobPayload{}, fmt.Errorf("decode %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return payload, nil
}
