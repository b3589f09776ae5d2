package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ProfileClient resolves contact details from the external user-profile
// service. Only the fields the dispatcher needs are decoded.
type ProfileClient struct {
	baseURL string
	client  *http.Client
}

func NewProfileClient(baseURL string) *ProfileClient {
	return &ProfileClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

type profileView struct {
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DeviceToken string `json:"device_token"`
}

func (p *ProfileClient) fetch(ctx context.Context, userID string) (profileView, error) {
	var view profileView
	if p.baseURL == "" {
		return view, nil
	}
	url := fmt.Sprintf("%s/users/%s/contact", p.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return view, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return view, fmt.Errorf("fetching profile for %s: %w", userID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return view, fmt.Errorf("profile service returned %d for %s", resp.StatusCode, userID)
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return view, err
	}
	return view, nil
}

func (p *ProfileClient) DeviceToken(ctx context.Context, userID string) (string, error) {
	v, err := p.fetch(ctx, userID)
	return v.DeviceToken, err
}

func (p *ProfileClient) Email(ctx context.Context, userID string) (string, error) {
	v, err := p.fetch(ctx, userID)
	return v.Email, err
}

func (p *ProfileClient) Phone(ctx context.Context, userID string) (string, error) {
	v, err := p.fetch(ctx, userID)
	return v.Phone, err
}
