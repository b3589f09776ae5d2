package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"firebase.google.com/go/v4/messaging"
)

// TokenSource resolves a user id to their device push token. Backed by the
// user-profile service, which is outside this engine.
type TokenSource interface {
	DeviceToken(ctx context.Context, userID string) (string, error)
}

// ContactSource resolves a user id to their email address and phone number.
type ContactSource interface {
	Email(ctx context.Context, userID string) (string, error)
	Phone(ctx context.Context, userID string) (string, error)
}

// PushNotifier sends an FCM data message to the counterparty of a transition:
// the walker's actions notify the owner and vice versa.
type PushNotifier struct {
	client *messaging.Client
	tokens TokenSource
}

func NewPushNotifier(client *messaging.Client, tokens TokenSource) *PushNotifier {
	return &PushNotifier{client: client, tokens: tokens}
}

func (n *PushNotifier) Name() string { return "push" }

func (n *PushNotifier) HandleWalkEvent(ctx context.Context, e Event) error {
	recipient := counterparty(e)
	if recipient == "" {
		return nil
	}
	token, err := n.tokens.DeviceToken(ctx, recipient)
	if err != nil {
		return fmt.Errorf("resolving device token for %s: %w", recipient, err)
	}
	if token == "" {
		return nil
	}
	msg := &messaging.Message{
		Token: token,
		Data: map[string]string{
			"type":     "walk_" + e.Transition,
			"walk_id":  e.WalkID,
			"status":   e.To,
			"pet_name": e.PetName,
		},
		Notification: &messaging.Notification{
			Title: "Walk update",
			Body:  fmt.Sprintf("Walk for %s is now %s", e.PetName, e.To),
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}
	if _, err := n.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending FCM: %w", err)
	}
	return nil
}

// webhookNotifier posts the event as JSON to a provider endpoint. Email and
// SMS delivery are external collaborators reached the same way, so they share
// this shape.
type webhookNotifier struct {
	name     string
	endpoint string
	contacts ContactSource
	resolve  func(ctx context.Context, c ContactSource, userID string) (string, error)
	client   *http.Client
}

func NewEmailNotifier(endpoint string, contacts ContactSource) Subscriber {
	return &webhookNotifier{
		name:     "email",
		endpoint: endpoint,
		contacts: contacts,
		resolve: func(ctx context.Context, c ContactSource, userID string) (string, error) {
			return c.Email(ctx, userID)
		},
		client: &http.Client{Timeout: 3 * time.Second},
	}
}

func NewSMSNotifier(endpoint string, contacts ContactSource) Subscriber {
	return &webhookNotifier{
		name:     "sms",
		endpoint: endpoint,
		contacts: contacts,
		resolve: func(ctx context.Context, c ContactSource, userID string) (string, error) {
			return c.Phone(ctx, userID)
		},
		client: &http.Client{Timeout: 3 * time.Second},
	}
}

func (n *webhookNotifier) Name() string { return n.name }

func (n *webhookNotifier) HandleWalkEvent(ctx context.Context, e Event) error {
	if n.endpoint == "" {
		return nil
	}
	recipient := counterparty(e)
	if recipient == "" {
		return nil
	}
	addr, err := n.resolve(ctx, n.contacts, recipient)
	if err != nil {
		return fmt.Errorf("resolving %s contact for %s: %w", n.name, recipient, err)
	}
	if addr == "" {
		return nil
	}
	payload := map[string]any{
		"to":         addr,
		"walk_id":    e.WalkID,
		"transition": e.Transition,
		"status":     e.To,
		"pet_name":   e.PetName,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting %s webhook: %w", n.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s provider returned %d", n.name, resp.StatusCode)
	}
	return nil
}

// AdminNotifier mirrors every walk event to the ops endpoint, regardless of
// which side acted. Disabled when no endpoint is configured.
type AdminNotifier struct {
	endpoint string
	client   *http.Client
}

func NewAdminNotifier(endpoint string) *AdminNotifier {
	return &AdminNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 3 * time.Second},
	}
}

func (n *AdminNotifier) Name() string { return "admin" }

func (n *AdminNotifier) HandleWalkEvent(ctx context.Context, e Event) error {
	if n.endpoint == "" {
		return nil
	}
	payload := map[string]any{
		"walk_id":     e.WalkID,
		"transition":  e.Transition,
		"from":        e.From,
		"to":          e.To,
		"owner_id":    e.OwnerID,
		"walker_id":   e.WalkerID,
		"actor":       e.Actor,
		"pet_name":    e.PetName,
		"occurred_at": e.OccurredAt,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting admin webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("admin channel returned %d", resp.StatusCode)
	}
	return nil
}

// counterparty picks who to notify: the side that did not perform the
// transition. Walker actions go to the owner, owner actions to the walker
// (when one is assigned).
func counterparty(e Event) string {
	if e.Actor == "walker" {
		return e.OwnerID
	}
	return e.WalkerID
}
