package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wolfman30/care-coordinator/internal/chat"
)

type createRequest struct {
	Messages  []chat.Message `json:"messages"`
	PatientID string         `json:"patientId,omitempty"`
}

type createResponse struct {
	Message chat.Message `json:"message"`
}

// apiClient calls POST /message/create on the care coordinator API.
type apiClient struct {
	http *resty.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &apiClient{http: rc}
}

func (c *apiClient) CreateMessage(ctx context.Context, history []chat.Message, patientID string) (chat.Message, error) {
	var out createResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createRequest{Messages: history, PatientID: patientID}).
		SetResult(&out).
		Post("/message/create")
	if err != nil {
		return chat.Message{}, fmt.Errorf("carechat: send message: %w", err)
	}
	if resp.IsError() {
		return chat.Message{}, fmt.Errorf("carechat: api returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if out.Message.Role != chat.RoleAssistant {
		return chat.Message{}, fmt.Errorf("carechat: unexpected reply role %q", out.Message.Role)
	}
	return out.Message, nil
}
