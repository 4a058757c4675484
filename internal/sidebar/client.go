package sidebar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	models "coursedrive/internal/domain/models/drive"
	"coursedrive/internal/httputil"
)

// Client talks to the drive HTTP API on behalf of one signed-in user
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a drive API client. token is sent as a bearer token on every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response decoded from its problem details body
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Detail)
}

// SidebarItems fetches one level of the drive. A nil parentID lists the root.
func (c *Client) SidebarItems(ctx context.Context, parentID *string) ([]models.SidebarItem, error) {
	q := url.Values{}
	if parentID != nil {
		q.Set("parentId", *parentID)
	} else {
		q.Set("parentId", "null")
	}

	var resp struct {
		Items []models.SidebarItem `json:"items"`
	}
	if err := c.get(ctx, "/api/sidebar-items?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Node fetches a single node with its breadcrumbs
func (c *Client) Node(ctx context.Context, id string) (*models.NodeDetail, error) {
	var node models.NodeDetail
	if err := c.get(ctx, "/api/drive/"+url.PathEscape(id), &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var problem httputil.ProblemDetail
		if json.Unmarshal(body, &problem) != nil || problem.Detail == "" {
			problem.Detail = strings.TrimSpace(string(body))
		}
		return &APIError{Status: resp.StatusCode, Detail: problem.Detail}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
