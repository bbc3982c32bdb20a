package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"printdesk/internal/notifier"
	"printdesk/internal/repo"
)

func event(eventType string, payload any) notifier.WebhookEvent {
	data, _ := json.Marshal(payload)
	return notifier.WebhookEvent{Type: eventType, Payload: data}
}

func TestMessageFromUnknownPhoneCreatesLead(t *testing.T) {
	fake := repo.NewFakeRepository()
	p := NewMessagingWebhookProcessor(fake, slog.Default(), nil)

	err := p.HandleMessagingEvent(context.Background(), event("message.received", map[string]any{
		"phone":   "+56 9 1234 5678",
		"name":    "Carla",
		"content": "Hola, necesito 100 tarjetas",
	}))
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(fake.LeadRows) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(fake.LeadRows))
	}
	var lead repo.Lead
	for _, l := range fake.LeadRows {
		lead = l
	}
	if lead.Name != "Carla" || lead.PhoneNumber != "+56912345678" {
		t.Errorf("unexpected lead %+v", lead)
	}
	if lead.LastInteraction == nil {
		t.Error("last interaction not bumped")
	}

	if len(fake.MessageRows) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fake.MessageRows))
	}
	if fake.MessageRows[0].Role != repo.RoleHuman {
		t.Errorf("role = %s, want %s", fake.MessageRows[0].Role, repo.RoleHuman)
	}

	if len(fake.NotificationRows) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(fake.NotificationRows))
	}
}

func TestMessageFromKnownLeadReusesIt(t *testing.T) {
	fake := repo.NewFakeRepository()
	fake.LeadRows["l1"] = repo.Lead{ID: "l1", Name: "Carla", PhoneNumber: "+56912345678"}
	p := NewMessagingWebhookProcessor(fake, slog.Default(), nil)

	err := p.HandleMessagingEvent(context.Background(), event("message.received", map[string]any{
		"lead_id": "l1",
		"content": "¿Está listo mi pedido?",
	}))
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(fake.LeadRows) != 1 {
		t.Errorf("no new lead should be created, got %d", len(fake.LeadRows))
	}
	if len(fake.MessageRows) != 1 || fake.MessageRows[0].LeadID != "l1" {
		t.Errorf("message not attached to lead: %+v", fake.MessageRows)
	}
}

func TestAssistantMessageDoesNotNotify(t *testing.T) {
	fake := repo.NewFakeRepository()
	fake.LeadRows["l1"] = repo.Lead{ID: "l1", Name: "Carla", PhoneNumber: "+56912345678"}
	p := NewMessagingWebhookProcessor(fake, slog.Default(), nil)

	err := p.HandleMessagingEvent(context.Background(), event("message.received", map[string]any{
		"lead_id": "l1",
		"role":    repo.RoleAssistant,
		"content": "Tu pedido está en producción",
	}))
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(fake.NotificationRows) != 0 {
		t.Errorf("assistant echoes must not create notifications, got %d", len(fake.NotificationRows))
	}
}

func TestMessageWithoutContentRejected(t *testing.T) {
	fake := repo.NewFakeRepository()
	p := NewMessagingWebhookProcessor(fake, slog.Default(), nil)

	err := p.HandleMessagingEvent(context.Background(), event("message.received", map[string]any{
		"phone": "+56912345678",
	}))
	if err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestLeadUpdateAppliesFields(t *testing.T) {
	fake := repo.NewFakeRepository()
	fake.LeadRows["l1"] = repo.Lead{ID: "l1", Name: "Carla", PhoneNumber: "+56912345678", AIEnabled: true}
	p := NewMessagingWebhookProcessor(fake, slog.Default(), nil)

	enabled := false
	pic := "https://cdn.example/pic.jpg"
	err := p.HandleMessagingEvent(context.Background(), event("lead.updated", map[string]any{
		"lead_id":             "l1",
		"profile_picture_url": pic,
		"ai_enabled":          enabled,
	}))
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}

	lead := fake.LeadRows["l1"]
	if lead.ProfilePictureURL == nil || *lead.ProfilePictureURL != pic {
		t.Errorf("profile picture not applied: %+v", lead.ProfilePictureURL)
	}
	if lead.AIEnabled {
		t.Error("ai flag not applied")
	}
}

func TestUnknownEventIgnored(t *testing.T) {
	fake := repo.NewFakeRepository()
	p := NewMessagingWebhookProcessor(fake, slog.Default(), nil)

	if err := p.HandleMessagingEvent(context.Background(), event("something.else", map[string]any{})); err != nil {
		t.Fatalf("unknown events must be ignored, got %v", err)
	}
}
