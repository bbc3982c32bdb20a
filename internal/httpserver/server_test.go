package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"printdesk/internal/audit"
	"printdesk/internal/feed"
	"printdesk/internal/mutate"
	"printdesk/internal/repo"
	"printdesk/internal/store"
)

func newTestServer(t *testing.T, fake *repo.FakeRepository) *Server {
	t.Helper()
	logger := slog.Default()
	hub := feed.NewHub(nil, logger, nil)
	entityStore := store.New(fake, hub, logger, nil)

	recorder := audit.NewRecorder(fake, logger, nil)
	coordinator := mutate.NewCoordinator(fake, entityStore, recorder, nil, logger, nil)

	srv := New(":0", logger, nil, Handlers{}, "")
	srv.SetDependencies(Dependencies{
		Repository:          fake,
		Store:               entityStore,
		Coordinator:         coordinator,
		AutosaveQuietPeriod: 20 * time.Millisecond,
	})
	return srv
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func seedTestOrder(fake *repo.FakeRepository, srv *Server, o repo.Order) {
	fake.OrderRows[o.ID] = o
	srv.deps.Store.Orders.UpsertOne(o)
}

func TestListOrdersEndpoint(t *testing.T) {
	fake := repo.NewFakeRepository()
	srv := newTestServer(t, fake)
	seedTestOrder(fake, srv, repo.Order{ID: "o1", Status: mutate.StatusNew, TotalAmount: 10000, DepositAmount: 4000, CreatedAt: time.Now()})

	rec := doRequest(srv, http.MethodGet, "/api/orders", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Orders []struct {
			ID           string `json:"id"`
			Balance      int64  `json:"balance"`
			PaymentLabel string `json:"payment_label"`
		} `json:"orders"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Orders) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Orders[0].Balance != 6000 || resp.Orders[0].PaymentLabel != "Debe $6.000" {
		t.Errorf("payment classification wrong: %+v", resp.Orders[0])
	}
}

func TestStatusEndpointPersistsAndAudits(t *testing.T) {
	fake := repo.NewFakeRepository()
	srv := newTestServer(t, fake)
	seedTestOrder(fake, srv, repo.Order{ID: "o1", Status: mutate.StatusNew, CreatedAt: time.Now()})

	rec := doRequest(srv, http.MethodPost, "/api/orders/o1/status", `{"new_status":"DISEÑO"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}

	if fake.OrderRows["o1"].Status != mutate.StatusDesign {
		t.Errorf("status not persisted: %s", fake.OrderRows["o1"].Status)
	}
	if len(fake.AuditRows) != 1 {
		t.Errorf("expected 1 audit entry, got %d", len(fake.AuditRows))
	}
}

func TestStatusEndpointRejectsUnknownStage(t *testing.T) {
	fake := repo.NewFakeRepository()
	srv := newTestServer(t, fake)
	seedTestOrder(fake, srv, repo.Order{ID: "o1", Status: mutate.StatusNew, CreatedAt: time.Now()})

	rec := doRequest(srv, http.MethodPost, "/api/orders/o1/status", `{"new_status":"NOPE"}`)
	if rec.Code == http.StatusOK {
		t.Fatal("unknown stage accepted")
	}
}

func TestDraftAutosaveCollapsesWrites(t *testing.T) {
	fake := repo.NewFakeRepository()
	srv := newTestServer(t, fake)
	seedTestOrder(fake, srv, repo.Order{ID: "o1", Status: mutate.StatusNew, CreatedAt: time.Now()})

	for _, desc := range []string{"a", "ab", "abc"} {
		rec := doRequest(srv, http.MethodPut, "/api/orders/o1/draft",
			`{"description":"`+desc+`","material":"","dimensions":"","quantity":0,"print_sides":"","finishing":[],"file_urls":[]}`)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("draft update code = %d", rec.Code)
		}
	}

	time.Sleep(150 * time.Millisecond)

	if fake.FieldWrites() != 1 {
		t.Errorf("expected 1 collapsed write, got %d", fake.FieldWrites())
	}
	persisted, err := fake.GetOrder(context.Background(), "o1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if persisted.Description == nil || *persisted.Description != "abc" {
		t.Errorf("persisted description = %v", persisted.Description)
	}
}

func TestDraftCloseCancelsPendingWrite(t *testing.T) {
	fake := repo.NewFakeRepository()
	srv := newTestServer(t, fake)
	seedTestOrder(fake, srv, repo.Order{ID: "o1", Status: mutate.StatusNew, CreatedAt: time.Now()})

	rec := doRequest(srv, http.MethodPut, "/api/orders/o1/draft",
		`{"description":"pending","material":"","dimensions":"","quantity":0,"print_sides":"","finishing":[],"file_urls":[]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("draft update code = %d", rec.Code)
	}

	rec = doRequest(srv, http.MethodDelete, "/api/orders/o1/draft", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("draft close code = %d", rec.Code)
	}

	time.Sleep(100 * time.Millisecond)
	if fake.FieldWrites() != 0 {
		t.Errorf("write fired after draft close: %d", fake.FieldWrites())
	}
}

func TestBoardEndpointGroupsColumns(t *testing.T) {
	fake := repo.NewFakeRepository()
	srv := newTestServer(t, fake)
	seedTestOrder(fake, srv, repo.Order{ID: "o1", Status: mutate.StatusNew, CreatedAt: time.Now()})
	seedTestOrder(fake, srv, repo.Order{ID: "o2", Status: mutate.StatusReady, CreatedAt: time.Now()})

	rec := doRequest(srv, http.MethodGet, "/api/orders/board", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	var resp struct {
		Columns []struct {
			Status string `json:"status"`
			Orders []any  `json:"orders"`
		} `json:"columns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Columns) != 5 {
		t.Fatalf("expected 5 columns, got %d", len(resp.Columns))
	}
	if resp.Columns[0].Status != mutate.StatusNew || len(resp.Columns[0].Orders) != 1 {
		t.Errorf("first column %+v", resp.Columns[0])
	}
}

func TestCreateLeadValidation(t *testing.T) {
	fake := repo.NewFakeRepository()
	srv := newTestServer(t, fake)

	rec := doRequest(srv, http.MethodPost, "/api/leads", `{"name":"","phone_number":"123"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid lead accepted: %d", rec.Code)
	}

	rec = doRequest(srv, http.MethodPost, "/api/leads",
		`{"name":"María","phone_number":"+56912345678","rut":"12.345.678-5"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("valid lead rejected: %d %s", rec.Code, rec.Body.String())
	}
	if len(fake.LeadRows) != 1 {
		t.Errorf("lead not persisted")
	}

	rec = doRequest(srv, http.MethodPost, "/api/leads",
		`{"name":"Mala","phone_number":"+56912345678","rut":"11.111.111-1"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid rut accepted: %d", rec.Code)
	}
}

func TestNotificationsEndpoint(t *testing.T) {
	fake := repo.NewFakeRepository()
	srv := newTestServer(t, fake)

	n := repo.Notification{ID: "n1", Type: "new_message", Title: "Nuevo mensaje", Message: "hola", CreatedAt: time.Now()}
	fake.NotificationRows["n1"] = n
	srv.deps.Store.Notifications.UpsertOne(n)

	rec := doRequest(srv, http.MethodGet, "/api/notifications", "")
	var resp struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UnreadCount != 1 {
		t.Errorf("unread = %d, want 1", resp.UnreadCount)
	}

	rec = doRequest(srv, http.MethodPost, "/api/notifications/n1/read", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read code = %d", rec.Code)
	}
	if !fake.NotificationRows["n1"].IsRead {
		t.Error("read flag not persisted")
	}
}
