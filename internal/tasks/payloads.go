package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants keep queue producers and consumers in sync.
const (
	TypeResumePDFGenerate = "document:resume_pdf"
)

// ResumePDFPayload is the minimal input for rendering a user's stored
// profile into a resume PDF.
type ResumePDFPayload struct {
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumePDFTask builds a resume PDF generation task.
func NewResumePDFTask(userID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumePDFPayload{
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumePDFGenerate, payload), nil
}
