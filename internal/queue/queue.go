package queue

import "context"

// Message is the processing payload handed from intake to a worker. At
// least once delivery: handlers must tolerate re-processing the same
// audio reference.
type Message struct {
	JobID            string `json:"jobId"`
	AudioRef         string `json:"audioRef"`
	OriginalFilename string `json:"originalFilename"`
}

// Publisher enqueues processing messages.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Handler processes one delivered message.
type Handler interface {
	Process(ctx context.Context, msg Message) error
}
