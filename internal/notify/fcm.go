package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

// FCMPusher implements Pusher on Firebase Cloud Messaging.
type FCMPusher struct {
	client *messaging.Client
}

func NewFCMPusher(ctx context.Context, projectID string) (*FCMPusher, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &FCMPusher{client: client}, nil
}

func (p *FCMPusher) Send(ctx context.Context, token string, event Event) error {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "Meeting ready",
			Body:  "Your meeting transcript and summary are ready.",
		},
		Data: map[string]string{
			"resultKey": event.ResultKey,
		},
	}

	if _, err := p.client.Send(ctx, msg); err != nil {
		if messaging.IsUnregistered(err) {
			return &PermanentError{Err: err}
		}
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}
