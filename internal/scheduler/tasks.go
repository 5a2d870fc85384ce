package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskOutreachDue = "outreach.task.due"

type OutreachDuePayload struct {
	TaskID         string `json:"taskId"`
	OrganizationID string `json:"organizationId"`
}

func NewOutreachDueTask(payload OutreachDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutreachDue, data), nil
}

func ParseOutreachDuePayload(task *asynq.Task) (OutreachDuePayload, error) {
	var payload OutreachDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OutreachDuePayload{}, err
	}
	return payload, nil
}
