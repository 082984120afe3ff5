package project

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/segmentio/encoding/json"
)

// Client is a minimal REST source for a Procore-compatible API. Only the
// read paths the scanner needs are implemented.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient takes the API base URL (scheme and host) and a bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Items lists items of one type newer than sinceID. The API pages by id
// filter, so a single request per poll is enough for the volumes involved.
func (c *Client) Items(projectID int64, itemType string, sinceID int64) ([]Item, error) {
	endpoint := fmt.Sprintf("%s/rest/v1.0/projects/%d/%s", c.baseURL, projectID, itemType)
	q := url.Values{}
	if sinceID > 0 {
		q.Set("filters[id_greater_than]", fmt.Sprintf("%d", sinceID))
	}
	q.Set("sort", "id")
	endpoint += "?" + q.Encode()

	body, err := c.get(endpoint)
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", itemType, err)
	}
	for i := range items {
		if items[i].Type == "" {
			items[i].Type = itemType
		}
	}
	return items, nil
}

// Download fetches one attachment by its pre-signed URL.
func (c *Client) Download(att ItemAttachment) ([]byte, error) {
	return c.get(att.URL)
}

func (c *Client) get(endpoint string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", endpoint, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}
