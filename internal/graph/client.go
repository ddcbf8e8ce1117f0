// Package graph talks to the Microsoft Graph drive API.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rpggio/lectern/internal/identity"
)

// DefaultFolder is used when Upload is called without a folder.
const DefaultFolder = "Presentations"

// DriveItem is the subset of drive item metadata the server uses.
type DriveItem struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	WebURL      string `json:"webUrl,omitempty"`
	CTag        string `json:"cTag,omitempty"`
	DownloadURL string `json:"@microsoft.graph.downloadUrl,omitempty"`
}

// Client is a minimal Graph drive client.
type Client struct {
	baseURL string
	tokens  identity.TokenSource
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, tokens identity.TokenSource, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    httpClient,
		logger:  logger,
	}
}

// Upload stores content as folder/name in the signed-in user's drive and
// returns the new item's ID. The folder is created when the lookup returns
// 404. A failure after folder creation leaves the folder in place.
func (c *Client) Upload(ctx context.Context, name string, content io.Reader, folder string) (string, error) {
	if folder == "" {
		folder = DefaultFolder
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	if _, err := c.do(ctx, token, "get drive", http.MethodGet, "/me/drive", nil, ""); err != nil {
		return "", err
	}

	folderPath := "/me/drive/items/root:/" + escapePath(folder)
	resp, err := c.send(ctx, token, http.MethodGet, folderPath, nil, "")
	if err != nil {
		return "", fmt.Errorf("check folder: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		drainClose(resp)
		if err := c.createFolder(ctx, token, folder); err != nil {
			return "", err
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", statusError("check folder", resp)
	default:
		drainClose(resp)
	}

	uploadPath := "/me/drive/items/root:/" + escapePath(folder) + "/" + escapePath(name) + ":/content"
	body, err := c.do(ctx, token, "upload", http.MethodPut, uploadPath, content, "application/octet-stream")
	if err != nil {
		return "", err
	}

	var item DriveItem
	if err := json.Unmarshal(body, &item); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if c.logger != nil {
		c.logger.InfoContext(ctx, "file uploaded", "name", name, "folder", folder, "item_id", item.ID)
	}
	return item.ID, nil
}

func (c *Client) createFolder(ctx context.Context, token, folder string) error {
	payload, err := json.Marshal(map[string]any{
		"name":                              folder,
		"folder":                            map[string]any{},
		"@microsoft.graph.conflictBehavior": "rename",
	})
	if err != nil {
		return fmt.Errorf("encoding folder request: %w", err)
	}
	_, err = c.do(ctx, token, "create folder", http.MethodPost, "/me/drive/items/root/children", bytes.NewReader(payload), "application/json")
	return err
}

// Item fetches drive item metadata. Fields restricts the returned
// properties via $select.
func (c *Client) Item(ctx context.Context, id string, fields ...string) (*DriveItem, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	path := "/me/drive/items/" + url.PathEscape(id)
	if len(fields) > 0 {
		path += "?select=" + strings.Join(fields, ",")
	}
	body, err := c.do(ctx, token, "get item", http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}

	var item DriveItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("decoding item: %w", err)
	}
	return &item, nil
}

// WebURL returns the browser URL of a drive item.
func (c *Client) WebURL(ctx context.Context, id string) (string, error) {
	item, err := c.Item(ctx, id, "id", "webUrl")
	if err != nil {
		return "", err
	}
	return item.WebURL, nil
}

// CountSlides asks the workbook endpoint for the item's sheets and returns
// how many there are. Zero means the count is unknown.
func (c *Client) CountSlides(ctx context.Context, id string) (int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, err
	}
	body, err := c.do(ctx, token, "count slides", http.MethodGet, "/me/drive/items/"+url.PathEscape(id)+"/workbook/worksheets", nil, "")
	if err != nil {
		return 0, err
	}

	var list struct {
		Value []json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return 0, fmt.Errorf("decoding worksheets: %w", err)
	}
	return len(list.Value), nil
}

// do sends a request and returns the body of a 2xx response, or a
// *StatusError naming op.
func (c *Client) do(ctx context.Context, token, op, method, path string, body io.Reader, contentType string) ([]byte, error) {
	resp, err := c.send(ctx, token, method, path, body, contentType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(op, resp)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", op, err)
	}
	return data, nil
}

func (c *Client) send(ctx context.Context, token, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.logger != nil {
		c.logger.DebugContext(ctx, "graph request", "method", method, "path", path)
	}
	return c.http.Do(req)
}

func statusError(op string, resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &StatusError{Op: op, Status: resp.StatusCode, Body: string(body)}
}

func drainClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
