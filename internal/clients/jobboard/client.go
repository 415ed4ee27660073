package jobboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	httpClient  HTTPClient
	rateLimiter *rate.Limiter
	baseURL     string
	token       string
	retryDelay  time.Duration
}

func NewClient(baseURL string, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		retryDelay: 2 * time.Second,
	}
}

func (c *Client) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

// SetTimeout applies to the standard http.Client only. An injected HTTPClient is kept as is.
func (c *Client) SetTimeout(timeout time.Duration) {
	httpClient, ok := c.httpClient.(*http.Client)
	if !ok {
		return
	}
	withTimeout := *httpClient
	withTimeout.Timeout = timeout
	c.httpClient = &withTimeout
}

func (c *Client) SetRateLimit(maxRequestsPerSecond float32) {
	c.rateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 1)
}

func (c *Client) GetSuggestedJobs(ctx context.Context, userID int64) ([]models.SuggestedJob, error) {
	var suggestions []models.SuggestedJob
	if err := c.getJSON(ctx, c.userURL(userID, "suggested-jobs"), &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (c *Client) UpdateSuggestedJobStatus(ctx context.Context, userID int64, suggestionID int64,
	estado models.SuggestionState) error {

	apiURL := c.userURL(userID, "suggested-jobs", strconv.FormatInt(suggestionID, 10))
	_, err := c.sendJSON(ctx, http.MethodPatch, apiURL, map[string]string{"estado": string(estado)})
	return err
}

func (c *Client) CheckApplication(ctx context.Context, userID int64, jobID int64) (bool, error) {
	params := url.Values{}
	params.Add("job_id", strconv.FormatInt(jobID, 10))

	var response checkApplicationResponse
	if err := c.getJSON(ctx, c.userURL(userID, "applications", "check")+"?"+params.Encode(), &response); err != nil {
		return false, err
	}
	return response.HasApplied, nil
}

func (c *Client) GetApplications(ctx context.Context, userID int64) ([]models.Application, error) {
	var applications []models.Application
	if err := c.getJSON(ctx, c.userURL(userID, "applications"), &applications); err != nil {
		return nil, err
	}
	return applications, nil
}

func (c *Client) GetJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := c.getJSON(ctx, c.baseURL+"/jobs", &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *Client) ChangePassword(ctx context.Context, userID int64, current, newPassword, confirm string) error {
	_, err := c.sendJSON(ctx, http.MethodPost, c.userURL(userID, "password"), changePasswordRequest{
		CurrentPassword: current,
		NewPassword:     newPassword,
		ConfirmPassword: confirm,
	})
	return err
}

func (c *Client) userURL(userID int64, parts ...string) string {
	return c.baseURL + "/users/" + strconv.FormatInt(userID, 10) + "/" + strings.Join(parts, "/")
}

// getJSON retries server errors, other failures are returned at once.
func (c *Client) getJSON(ctx context.Context, apiURL string, dest any) error {

	var body []byte
	var err error

	_, _ = lo.AttemptWhile(3, func(i int) (error, bool) {
		if i > 0 {
			log.Warnf("job-board api returned server error for %v, retrying...", apiURL)
			if err = c.waitRetry(ctx); err != nil {
				return err, false
			}
		}
		body, err = c.sendRequest(ctx, http.MethodGet, apiURL, nil)
		return err, isServerError(err)
	})

	if err != nil {
		return err
	}

	if err = json.NewDecoder(bytes.NewReader(body)).Decode(dest); err != nil {
		return fmt.Errorf("error decoding JSON response: %v", err)
	}
	return nil
}

func (c *Client) waitRetry(ctx context.Context) error {
	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) sendJSON(ctx context.Context, method string, apiURL string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding request: %v", err)
	}
	return c.sendRequest(ctx, method, apiURL, bytes.NewReader(encoded))
}

func (c *Client) sendRequest(ctx context.Context, method string, url string, body io.Reader) ([]byte, error) {

	if c.rateLimiter != nil {
		err := c.rateLimiter.Wait(ctx)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	return c.handleResponse(resp)
}

func (c *Client) handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newAPIError(resp.StatusCode, body)
	}

	return body, nil
}
