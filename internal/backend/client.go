package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cycleview/internal/state"
)

const defaultTimeout = 15 * time.Second

// Client talks to the remote content backend over JSON/HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

func NewClient(rawURL string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// LoadSettings fetches the remote settings document as a partial patch.
// The backend may wrap the document in {"settings": {...}} or return the
// fields at the top level; both shapes are accepted.
func (c *Client) LoadSettings(ctx context.Context) (*state.Patch, error) {
	body, err := c.do(ctx, http.MethodGet, "/load_settings", nil)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Settings json.RawMessage `json:"settings"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Settings) > 0 {
		body = wrapped.Settings
	}
	return state.ParseDocument(body)
}

// SaveSettings pushes the full settings document to the remote store.
func (c *Client) SaveSettings(ctx context.Context, doc state.Document) error {
	_, err := c.do(ctx, http.MethodPost, "/save_settings", doc)
	return err
}

// GetContent requests the next piece of content. Backend error payloads
// come back as *RemoteError.
func (c *Client) GetContent(ctx context.Context, req ContentRequest) (*ContentPayload, error) {
	body, err := c.do(ctx, http.MethodPost, "/get_content", req)
	if err != nil {
		return nil, err
	}

	var payload ContentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode content payload: %w", err)
	}
	payload.Raw = body
	return &payload, nil
}

// GetCustomFolders lists the server-side content and punishment folders.
func (c *Client) GetCustomFolders(ctx context.Context, refresh bool) (*FoldersPayload, error) {
	path := "/get_custom_folders"
	if refresh {
		path += "?refresh=true"
	}
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var payload FoldersPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode folders payload: %w", err)
	}
	return &payload, nil
}

// GenerateCaption asks the backend's local model for a caption. An empty
// caption is a valid (silently degraded) response.
func (c *Client) GenerateCaption(ctx context.Context, req CaptionRequest) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/generate_caption", req)
	if err != nil {
		return "", err
	}

	var payload struct {
		Caption string `json:"caption"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode caption payload: %w", err)
	}
	return payload.Caption, nil
}

// ImportSettings imports a settings file by server-side path.
func (c *Client) ImportSettings(ctx context.Context, path string) (*ImportResult, error) {
	body, err := c.do(ctx, http.MethodPost, "/import_settings", map[string]string{"path": path})
	if err != nil {
		return nil, err
	}
	return decodeImportResult(body)
}

// ImportSettingsFile uploads a settings file as multipart form data.
func (c *Client) ImportSettingsFile(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("settingsFile", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy settings file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	body, err := c.doRaw(ctx, http.MethodPost, "/import_settings_file", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	return decodeImportResult(body)
}

// UpdateCredentials pushes Reddit API credentials. Failures here are
// best-effort for callers; they log rather than surface.
func (c *Client) UpdateCredentials(ctx context.Context, creds state.Credentials) error {
	_, err := c.do(ctx, http.MethodPost, "/update_credentials", creds)
	return err
}

// DirectSaveCredentials is the redundant direct-write variant of
// UpdateCredentials.
func (c *Client) DirectSaveCredentials(ctx context.Context, creds state.Credentials) error {
	_, err := c.do(ctx, http.MethodPost, "/direct_save_credentials", creds)
	return err
}

func decodeImportResult(body []byte) (*ImportResult, error) {
	var result ImportResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode import result: %w", err)
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return c.doRaw(ctx, method, path, body, "application/json")
}

func (c *Client) doRaw(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	reqURL := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// An explicit error field wins over the status code so the payload's
	// own message reaches the caller.
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Error != "" {
		return nil, env.toError()
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("backend %s returned status %d", rel.String(), resp.StatusCode)
	}
	return data, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("backend url required")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", raw, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
