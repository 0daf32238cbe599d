package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
	"github.com/kimhsiao/fieldcapture/backend/internal/models"
)

// TokenSource yields the bearer token of the current user session. Session
// management lives outside this module.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// RESTConfig holds the PostgREST endpoint settings.
type RESTConfig struct {
	BaseURL string // e.g. https://project.example.co
	APIKey  string
	Table   string // default: survey_records
	Timeout time.Duration
}

// RESTRecordClient submits records with POST {base}/rest/v1/{table}.
type RESTRecordClient struct {
	config     RESTConfig
	tokens     TokenSource
	httpClient *http.Client
}

// NewRESTRecordClient creates a RESTRecordClient. When tokens is nil the API
// key doubles as the bearer token.
func NewRESTRecordClient(config RESTConfig, tokens TokenSource) (*RESTRecordClient, error) {
	if config.BaseURL == "" {
		return nil, errors.New(errors.ErrConfig, "remote base URL is required")
	}
	if config.Table == "" {
		config.Table = "survey_records"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if tokens == nil {
		tokens = StaticToken(config.APIKey)
	}

	return &RESTRecordClient{
		config: config,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// SubmitSurveyRecord inserts record and returns the id of the inserted row.
func (c *RESTRecordClient) SubmitSurveyRecord(ctx context.Context, record *models.SurveyRecord) (string, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return "", errors.Wrap(errors.ErrRemoteError, "failed to encode record", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", errors.Wrap(errors.ErrAuthFault, "no session token", err)
	}

	url := fmt.Sprintf("%s/rest/v1/%s", c.config.BaseURL, c.config.Table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(errors.ErrRemoteError, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	if c.config.APIKey != "" {
		req.Header.Set("apikey", c.config.APIKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.ErrRemoteError, "submit request failed", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", errors.New(errors.ErrAuthFault,
			fmt.Sprintf("submit rejected with status %d: %s", resp.StatusCode, string(respBody)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", errors.New(errors.ErrRemoteError,
			fmt.Sprintf("submit failed with status %d: %s", resp.StatusCode, string(respBody)))
	}

	return parseInsertedID(respBody)
}

// parseInsertedID reads the id of the first row of a representation response.
func parseInsertedID(body []byte) (string, error) {
	var rows []map[string]interface{}
	if err := json.Unmarshal(body, &rows); err != nil {
		var row map[string]interface{}
		if err2 := json.Unmarshal(body, &row); err2 != nil {
			return "", errors.Wrap(errors.ErrRemoteError, "unexpected submit response", err)
		}
		rows = []map[string]interface{}{row}
	}
	if len(rows) == 0 {
		return "", errors.New(errors.ErrRemoteError, "submit returned no rows")
	}

	switch id := rows[0]["id"].(type) {
	case string:
		return id, nil
	case float64:
		return fmt.Sprintf("%.0f", id), nil
	case nil:
		return "", errors.New(errors.ErrRemoteError, "submit response has no id")
	default:
		return fmt.Sprint(id), nil
	}
}
