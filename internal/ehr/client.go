package ehr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/wolfman30/care-coordinator/pkg/logging"
)

// UpstreamError is returned when the EHR answers with a non-2xx status.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ehr: upstream error (status %d): %s", e.StatusCode, e.Body)
}

// Config holds configuration for the EHR client
type Config struct {
	BaseURL    string // e.g. "http://ehr.internal"
	Timeout    time.Duration
	HTTPClient *http.Client // optional, mainly for tests
	Logger     *logging.Logger
}

// Client reads patient records from the EHR system of record.
type Client struct {
	http   *resty.Client
	logger *logging.Logger
}

// New creates an EHR client. The client never retries; callers decide.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("ehr: BaseURL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{http: rc, logger: logger}, nil
}

// GetPatient fetches one patient record.
// GET /patient/{id}
func (c *Client) GetPatient(ctx context.Context, id string) (*PatientRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("ehr: patient id is required")
	}

	var record PatientRecord
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&record).
		Get("/patient/{id}")
	if err != nil {
		c.logger.Error("ehr request failed", "patient_id", id, "error", err)
		return nil, fmt.Errorf("ehr: request failed: %w", err)
	}
	if !resp.IsSuccess() {
		upstream := &UpstreamError{StatusCode: resp.StatusCode(), Body: resp.String()}
		c.logger.Error("ehr returned error status",
			"patient_id", id,
			"status", upstream.StatusCode,
			"body", upstream.Body,
		)
		return nil, upstream
	}
	return &record, nil
}
