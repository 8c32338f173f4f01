package job

import "time"

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Job identifies one processing request. AudioRef is immutable once
// created; OriginalFilename is advisory only.
type Job struct {
	ID               string    `json:"id"`
	AudioRef         string    `json:"audioRef"`
	OriginalFilename string    `json:"originalFilename"`
	Status           Status    `json:"status"`
	ResultKey        string    `json:"resultKey,omitempty"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// validTransition enforces the forward-only lifecycle: a status never
// regresses and terminal states are final.
func validTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusDone || to == StatusFailed
	default:
		return false
	}
}
