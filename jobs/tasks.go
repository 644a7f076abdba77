// Package jobs hosts the background worker and the ledger maintenance tasks
// it runs.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrity verifies that posted journal entries stay balanced.
	TaskGLIntegrity = "gl:integrity"
	// TaskGLOrphanSweep removes posted entry headers left without lines by
	// interrupted postings.
	TaskGLOrphanSweep = "gl:orphan_sweep"
)

// GLTaskPayload scopes a ledger maintenance task. CompanyID zero means all
// companies.
type GLTaskPayload struct {
	CompanyID int64 `json:"companyId"`
}

// NewGLIntegrityTask constructs an Asynq task for the integrity check.
func NewGLIntegrityTask(payload GLTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, data), nil
}

// NewGLOrphanSweepTask constructs an Asynq task for the orphan sweep.
func NewGLOrphanSweepTask(payload GLTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLOrphanSweep, data), nil
}
