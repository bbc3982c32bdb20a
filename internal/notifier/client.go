package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"printdesk/internal/cache"
	"printdesk/internal/metrics"
)

const (
	defaultStorageTreeTTL = 5 * time.Minute
	storageTreeCacheKey   = "notifier:storage_tree"
	jsonContentType       = "application/json"
)

var (
	// ErrUnauthorized indicates the messaging service rejected our credentials.
	ErrUnauthorized = errors.New("messaging service rejected credentials")
	// ErrMissingBaseURL indicates the client was configured without a
	// base URL. The service refuses to start in that state rather than
	// silently defaulting to some host.
	ErrMissingBaseURL = errors.New("messaging base url not configured")
)

// Client provides typed access to the external messaging service that
// owns the WhatsApp channel, the learnings queue and file storage.
type Client struct {
	logger  *slog.Logger
	baseURL string
	timeout time.Duration
	http    *http.Client
	metrics *metrics.Metrics
	cache   *cache.Redis
	treeTTL time.Duration
}

// Config holds messaging client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// responseEnvelope mirrors the service's standard response shape.
type responseEnvelope struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Notified bool            `json:"notified"`
	Data     json.RawMessage `json:"data"`
}

func (r responseEnvelope) ok() bool {
	return strings.EqualFold(r.Status, "success") || strings.EqualFold(r.Status, "ok")
}

// New creates a messaging client. An empty base URL is a configuration
// error, not a silent default.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics, redis *cache.Redis) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		logger:  logger.With("component", "notifier"),
		baseURL: base,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		metrics: m,
		cache:   redis,
		treeTTL: defaultStorageTreeTTL,
	}, nil
}

// NotifyStatusChange asks the service to message the customer about a
// status change. The returned bool reports whether the customer was
// actually notified, which depends on the lead having a phone number.
func (c *Client) NotifyStatusChange(ctx context.Context, orderID, newStatus string) (bool, error) {
	env, err := c.postJSON(ctx, "/orders/update_status", map[string]any{
		"order_id":   orderID,
		"new_status": newStatus,
	})
	if err != nil {
		return false, err
	}
	return env.Notified, nil
}

// NotifyPaymentUpdate asks the service to message the customer about a
// payment update.
func (c *Client) NotifyPaymentUpdate(ctx context.Context, orderID string, deposit, total int64) (bool, error) {
	env, err := c.postJSON(ctx, "/orders/update_payment", map[string]any{
		"order_id":       orderID,
		"deposit_amount": deposit,
		"total_amount":   total,
	})
	if err != nil {
		return false, err
	}
	return env.Notified, nil
}

// SendManual sends an agent-authored message to the lead's WhatsApp.
func (c *Client) SendManual(ctx context.Context, leadID, content string) error {
	_, err := c.postJSON(ctx, "/chat/send_manual", map[string]any{
		"lead_id": leadID,
		"content": content,
	})
	return err
}

// ToggleAI flips the AI auto-response flag for a lead on the service side.
func (c *Client) ToggleAI(ctx context.Context, leadID string, enabled bool) error {
	_, err := c.postJSON(ctx, "/leads/toggle_ai", map[string]any{
		"lead_id": leadID,
		"enabled": enabled,
	})
	return err
}

// SyncProfilePicture pulls the lead's profile picture from the
// messaging platform and returns its URL.
func (c *Client) SyncProfilePicture(ctx context.Context, leadID string) (string, error) {
	env, err := c.postJSON(ctx, "/leads/sync_profile_pic", map[string]any{
		"lead_id": leadID,
	})
	if err != nil {
		return "", err
	}
	var payload struct {
		URL string `json:"url"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return "", fmt.Errorf("decode profile pic payload: %w", err)
		}
	}
	return payload.URL, nil
}

// Learning is one entry of the error-learning audit queue.
type Learning struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Mistake    string `json:"mistake"`
	Correction string `json:"correction"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// ListLearnings fetches the error-learning queue.
func (c *Client) ListLearnings(ctx context.Context) ([]Learning, error) {
	env, err := c.get(ctx, "/learnings")
	if err != nil {
		return nil, err
	}
	var learnings []Learning
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &learnings); err != nil {
			return nil, fmt.Errorf("decode learnings: %w", err)
		}
	}
	return learnings, nil
}

// ActOnLearning approves or rejects one learning entry. action is the
// service-side verb (e.g. "approve", "reject").
func (c *Client) ActOnLearning(ctx context.Context, action, id string) error {
	if action == "" || strings.ContainsAny(action, "/?#") {
		return fmt.Errorf("invalid learning action %q", action)
	}
	_, err := c.postJSON(ctx, "/learnings/"+action, map[string]any{"id": id})
	return err
}

// RunLearningsAudit kicks off a full audit pass on the service side.
func (c *Client) RunLearningsAudit(ctx context.Context) (string, error) {
	env, err := c.postJSON(ctx, "/learnings/run_audit", nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// StoredFile is one entry of the flat storage listing.
type StoredFile struct {
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	LeadID    string `json:"lead_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// StorageTree lists the stored files, served from Redis unless
// forceRefresh is set or the cache is cold.
func (c *Client) StorageTree(ctx context.Context, forceRefresh bool) ([]StoredFile, error) {
	if !forceRefresh && c.cache != nil {
		var cached []StoredFile
		if ok, err := c.cache.GetJSON(ctx, storageTreeCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	env, err := c.get(ctx, "/storage/tree")
	if err != nil {
		return nil, err
	}
	var files []StoredFile
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &files); err != nil {
			return nil, fmt.Errorf("decode storage tree: %w", err)
		}
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, storageTreeCacheKey, files, c.treeTTL); err != nil {
			c.logger.Warn("failed caching storage tree", "error", err)
		}
	}
	return files, nil
}

// UploadFile pushes a file into storage under the given path.
func (c *Client) UploadFile(ctx context.Context, path, name, mimeType string, content []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("path", path); err != nil {
		return fmt.Errorf("write upload field: %w", err)
	}
	if err := writer.WriteField("mime_type", mimeType); err != nil {
		return fmt.Errorf("write upload field: %w", err)
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("create upload part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("write upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish upload body: %w", err)
	}

	if _, err := c.call(ctx, http.MethodPost, "/storage/upload", &body, writer.FormDataContentType()); err != nil {
		return err
	}
	c.invalidateTree(ctx)
	return nil
}

// DeleteFile removes a stored file by path.
func (c *Client) DeleteFile(ctx context.Context, path string) error {
	if _, err := c.postJSON(ctx, "/storage/delete", map[string]any{"path": path}); err != nil {
		return err
	}
	c.invalidateTree(ctx)
	return nil
}

func (c *Client) invalidateTree(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, storageTreeCacheKey); err != nil {
		c.logger.Warn("failed invalidating storage tree cache", "error", err)
	}
}

func (c *Client) get(ctx context.Context, endpoint string) (*responseEnvelope, error) {
	return c.call(ctx, http.MethodGet, endpoint, nil, "")
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) (*responseEnvelope, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return c.call(ctx, http.MethodPost, endpoint, body, jsonContentType)
}

func (c *Client) call(ctx context.Context, method, endpoint string, body io.Reader, contentType string) (*responseEnvelope, error) {
	var env responseEnvelope
	if err := c.do(ctx, method, endpoint, body, contentType, &env); err != nil {
		return nil, err
	}
	if !env.ok() {
		message := strings.TrimSpace(env.Message)
		if message == "" {
			message = "messaging operation failed"
		}
		return nil, fmt.Errorf("messaging %s error: %s", endpoint, message)
	}
	return &env, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string, dest any) error {
	reqURL := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", jsonContentType)
	req.Header.Set("User-Agent", "printdesk/notifier-client")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.MessagingRequests.WithLabelValues(endpoint, "error").Inc()
		}
		return fmt.Errorf("messaging request: %w", err)
	}
	defer res.Body.Close()

	duration := time.Since(start).Seconds()
	statusLabel := fmt.Sprintf("%d", res.StatusCode)
	if c.metrics != nil {
		c.metrics.MessagingRequests.WithLabelValues(endpoint, statusLabel).Inc()
		c.metrics.MessagingLatency.WithLabelValues(endpoint, statusLabel).Observe(duration)
	}

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode >= 400 {
		return classifyHTTPError(res.StatusCode, string(bodyBytes))
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func classifyHTTPError(status int, body string) error {
	snippet := strings.TrimSpace(body)
	if len(snippet) > 300 {
		snippet = snippet[:300]
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrUnauthorized, snippet)
	}
	return fmt.Errorf("messaging http %d: %s", status, snippet)
}
