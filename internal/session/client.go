package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HackGT12/app-view-sub000/internal/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api http %d", e.Status)
	}
	return e.Message
}

// Client talks to the betting HTTP API with a player bearer token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	var env envelope
	_ = json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) LatestRound(ctx context.Context) (*models.Round, error) {
	var r models.Round
	if err := c.do(ctx, http.MethodGet, "/api/v1/rounds/latest", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) GetRound(ctx context.Context, id string) (*models.Round, error) {
	var r models.Round
	if err := c.do(ctx, http.MethodGet, "/api/v1/rounds/"+url.PathEscape(id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) SubmitVote(ctx context.Context, roundID, optionID string) error {
	body := map[string]string{"optionId": optionID}
	return c.do(ctx, http.MethodPost, "/api/v1/rounds/"+url.PathEscape(roundID)+"/votes", body, nil)
}

func (c *Client) SubmitResponse(ctx context.Context, teamID, lineID string, dir models.Direction, line float64) error {
	body := map[string]any{"type": dir, "line": line}
	path := fmt.Sprintf("/api/v1/teams/%s/lines/%s/responses", url.PathEscape(teamID), url.PathEscape(lineID))
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) Leaderboard(ctx context.Context, teamID string) ([]models.Member, error) {
	var out []models.Member
	if err := c.do(ctx, http.MethodGet, "/api/v1/teams/"+url.PathEscape(teamID)+"/leaderboard", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Stats(ctx context.Context) (models.UserStats, error) {
	var out models.UserStats
	err := c.do(ctx, http.MethodGet, "/api/v1/me/stats", nil, &out)
	return out, err
}
