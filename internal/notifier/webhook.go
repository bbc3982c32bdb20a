package notifier

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"printdesk/internal/metrics"
)

// WebhookEvent contains metadata and payload from an inbound messaging
// service callback (new customer message, lead profile update, ...).
type WebhookEvent struct {
	Type       string
	Headers    map[string]string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// WebhookProcessor defines the handler interface for messaging events.
type WebhookProcessor interface {
	HandleMessagingEvent(ctx context.Context, event WebhookEvent) error
}

// WebhookHandler verifies the messaging service's credentials and
// forwards events to the processor.
type WebhookHandler struct {
	logger      *slog.Logger
	metrics     *metrics.Metrics
	usernameMD5 string
	passwordMD5 string
	processor   WebhookProcessor
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(logger *slog.Logger, m *metrics.Metrics, usernameMD5, passwordMD5 string, processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{
		logger:      logger.With("component", "messaging_webhook"),
		metrics:     m,
		usernameMD5: strings.ToLower(usernameMD5),
		passwordMD5: strings.ToLower(passwordMD5),
		processor:   processor,
	}
}

// ServeHTTP satisfies http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.validateAuth(r); err != nil {
		h.metrics.Errors.WithLabelValues("messaging_webhook_auth").Inc()
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.metrics.Errors.WithLabelValues("messaging_webhook").Inc()
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	eventType := detectEventType(r.Header, body)
	headers := map[string]string{}
	for key, vals := range r.Header {
		if len(vals) > 0 {
			headers[key] = vals[0]
		}
	}

	event := WebhookEvent{
		Type:       eventType,
		Headers:    headers,
		Payload:    body,
		ReceivedAt: time.Now(),
	}
	h.metrics.WebhookEvents.WithLabelValues(eventType).Inc()

	if h.processor != nil {
		if err := h.processor.HandleMessagingEvent(r.Context(), event); err != nil {
			h.logger.Error("failed processing webhook", "error", err, "event", eventType)
			h.metrics.Errors.WithLabelValues("messaging_webhook_process").Inc()
			http.Error(w, "failed to process", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// The messaging service authenticates either with basic auth or, for
// its fire-and-forget callbacks, a single X-Messaging-Signature header
// carrying the password hash.
func (h *WebhookHandler) validateAuth(r *http.Request) error {
	if username, password, ok := r.BasicAuth(); ok {
		if md5Hex(username) != h.usernameMD5 {
			return fmt.Errorf("invalid username hash")
		}
		if md5Hex(password) != h.passwordMD5 {
			return fmt.Errorf("invalid password hash")
		}
		return nil
	}

	signature := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Messaging-Signature")))
	if signature == "" {
		return fmt.Errorf("missing credentials")
	}
	if signature != h.passwordMD5 {
		return fmt.Errorf("invalid signature")
	}
	return nil
}

func md5Hex(val string) string {
	sum := md5.Sum([]byte(val))
	return strings.ToLower(hex.EncodeToString(sum[:]))
}

func detectEventType(header http.Header, body []byte) string {
	if val := header.Get("X-Messaging-Event"); val != "" {
		return val
	}

	var generic struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &generic); err == nil && generic.Type != "" {
		return generic.Type
	}
	return "unknown"
}
