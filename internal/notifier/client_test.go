package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"printdesk/internal/metrics"
)

func testMetrics() *metrics.Metrics {
	return metrics.Registry("printdesk_test")
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL}, slog.Default(), nil, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}, slog.Default(), nil, nil); !errors.Is(err, ErrMissingBaseURL) {
		t.Errorf("expected ErrMissingBaseURL, got %v", err)
	}
}

func TestNotifyStatusChangeParsesNotifiedFlag(t *testing.T) {
	var received map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/update_status" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "notified": true})
	}))

	notified, err := client.NotifyStatusChange(context.Background(), "o1", "DISEÑO")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !notified {
		t.Error("notified flag lost")
	}
	if received["order_id"] != "o1" || received["new_status"] != "DISEÑO" {
		t.Errorf("unexpected request body %v", received)
	}
}

func TestNotifyStatusChangeCustomerWithoutPhone(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "notified": false})
	}))

	notified, err := client.NotifyStatusChange(context.Background(), "o1", "LISTO")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if notified {
		t.Error("phone-less customer should not read as notified")
	}
}

func TestEnvelopeErrorSurfaces(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "message": "lead sin teléfono"})
	}))

	if err := client.SendManual(context.Background(), "l1", "hola"); err == nil {
		t.Fatal("expected envelope error")
	}
}

func TestUnauthorizedClassified(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))

	err := client.ToggleAI(context.Background(), "l1", true)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestActOnLearningValidatesAction(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success"})
	}))

	if err := client.ActOnLearning(context.Background(), "approve", "id1"); err != nil {
		t.Errorf("valid action rejected: %v", err)
	}
	if err := client.ActOnLearning(context.Background(), "../evil", "id1"); err == nil {
		t.Error("path-traversing action accepted")
	}
	if err := client.ActOnLearning(context.Background(), "", "id1"); err == nil {
		t.Error("empty action accepted")
	}
}

func TestStorageTreeDecoding(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": []map[string]any{
				{"file_path": "archivos/logo.png", "file_name": "logo.png", "mime_type": "image/png"},
			},
		})
	}))

	files, err := client.StorageTree(context.Background(), true)
	if err != nil {
		t.Fatalf("storage tree: %v", err)
	}
	if len(files) != 1 || files[0].FilePath != "archivos/logo.png" {
		t.Errorf("unexpected files %+v", files)
	}
}

func TestWebhookHandlerAuth(t *testing.T) {
	// md5("user") / md5("pass")
	handler := NewWebhookHandler(slog.Default(), testMetrics(), md5Hex("user"), md5Hex("pass"), nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/messaging", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing auth: code = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhook/messaging", nil)
	req.SetBasicAuth("user", "pass")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid auth: code = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhook/messaging", nil)
	req.SetBasicAuth("user", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: code = %d", rec.Code)
	}
}

func TestWebhookHandlerSignatureHeader(t *testing.T) {
	handler := NewWebhookHandler(slog.Default(), testMetrics(), md5Hex("user"), md5Hex("pass"), nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/messaging", nil)
	req.Header.Set("X-Messaging-Signature", md5Hex("pass"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid signature: code = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhook/messaging", nil)
	req.Header.Set("X-Messaging-Signature", md5Hex("other"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong signature: code = %d", rec.Code)
	}
}
