package queue

import (
	"context"
	"encoding/json"
	"fmt"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
)

// CloudTasks publishes processing messages as HTTP tasks addressed at the
// worker endpoint. The queue retries failed deliveries with its own backoff
// policy, giving the pipeline at-least-once semantics.
type CloudTasks struct {
	client    *cloudtasks.Client
	queuePath string
	targetURL string
}

func NewCloudTasks(ctx context.Context, project, location, queueID, targetURL string) (*CloudTasks, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create cloud tasks client: %w", err)
	}
	return &CloudTasks{
		client:    client,
		queuePath: fmt.Sprintf("projects/%s/locations/%s/queues/%s", project, location, queueID),
		targetURL: targetURL,
	}, nil
}

func (q *CloudTasks) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req := &cloudtaskspb.CreateTaskRequest{
		Parent: q.queuePath,
		Task: &cloudtaskspb.Task{
			MessageType: &cloudtaskspb.Task_HttpRequest{
				HttpRequest: &cloudtaskspb.HttpRequest{
					HttpMethod: cloudtaskspb.HttpMethod_POST,
					Url:        q.targetURL,
					Headers:    map[string]string{"Content-Type": "application/json"},
					Body:       body,
				},
			},
		},
	}

	if _, err := q.client.CreateTask(ctx, req); err != nil {
		return fmt.Errorf("create task for job %s: %w", msg.JobID, err)
	}
	return nil
}

func (q *CloudTasks) Close() error {
	return q.client.Close()
}
