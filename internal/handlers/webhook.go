package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"printdesk/internal/metrics"
	"printdesk/internal/notifier"
	"printdesk/internal/repo"
	"printdesk/internal/validate"

	"github.com/google/uuid"
)

// Messaging webhook event types.
const (
	eventMessageReceived = "message.received"
	eventLeadUpdated     = "lead.updated"
)

// MessagingWebhookProcessor persists inbound messaging events. The
// database writes fire the change feed, which is how the stores and
// any connected dashboards learn about new messages.
type MessagingWebhookProcessor struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	repo    repo.Repository
}

// NewMessagingWebhookProcessor creates the processor.
func NewMessagingWebhookProcessor(r repo.Repository, logger *slog.Logger, m *metrics.Metrics) *MessagingWebhookProcessor {
	return &MessagingWebhookProcessor{
		logger:  logger.With("component", "webhook_processor"),
		metrics: m,
		repo:    r,
	}
}

type inboundMessage struct {
	LeadID  string `json:"lead_id"`
	Phone   string `json:"phone"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type leadUpdate struct {
	LeadID            string  `json:"lead_id"`
	Phone             string  `json:"phone"`
	Name              *string `json:"name"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	AIEnabled         *bool   `json:"ai_enabled"`
}

// HandleMessagingEvent satisfies notifier.WebhookProcessor.
func (p *MessagingWebhookProcessor) HandleMessagingEvent(ctx context.Context, event notifier.WebhookEvent) error {
	switch event.Type {
	case eventMessageReceived:
		return p.handleMessage(ctx, event.Payload)
	case eventLeadUpdated:
		return p.handleLeadUpdate(ctx, event.Payload)
	default:
		p.logger.Debug("ignoring webhook event", "type", event.Type)
		return nil
	}
}

func (p *MessagingWebhookProcessor) handleMessage(ctx context.Context, payload json.RawMessage) error {
	var msg inboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode message event: %w", err)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return fmt.Errorf("message event without content")
	}

	lead, err := p.resolveLead(ctx, msg.LeadID, msg.Phone, msg.Name)
	if err != nil {
		return err
	}

	role := msg.Role
	if role == "" {
		role = repo.RoleHuman
	}
	if _, err := p.repo.InsertMessage(ctx, repo.Message{
		ID:      uuid.NewString(),
		LeadID:  lead.ID,
		Role:    role,
		Content: msg.Content,
	}); err != nil {
		return fmt.Errorf("persist inbound message: %w", err)
	}

	if err := p.repo.TouchLeadInteraction(ctx, lead.ID, time.Now()); err != nil {
		p.logger.Warn("failed bumping last interaction", "lead_id", lead.ID, "error", err)
	}

	if role == repo.RoleHuman {
		if _, err := p.repo.InsertNotification(ctx, repo.Notification{
			ID:      uuid.NewString(),
			LeadID:  &lead.ID,
			Type:    "new_message",
			Title:   "Nuevo mensaje",
			Message: fmt.Sprintf("%s: %s", lead.Name, truncate(msg.Content, 120)),
		}); err != nil {
			p.logger.Warn("failed inserting message notification", "lead_id", lead.ID, "error", err)
		}
	}
	return nil
}

func (p *MessagingWebhookProcessor) handleLeadUpdate(ctx context.Context, payload json.RawMessage) error {
	var update leadUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		return fmt.Errorf("decode lead event: %w", err)
	}

	lead, err := p.resolveLead(ctx, update.LeadID, update.Phone, deref(update.Name))
	if err != nil {
		return err
	}

	if update.Name != nil || update.Phone != "" {
		patch := repo.LeadPatch{Name: update.Name}
		if update.Phone != "" {
			phone := validate.FormatPhone(update.Phone)
			patch.PhoneNumber = &phone
		}
		if err := p.repo.UpdateLead(ctx, lead.ID, patch); err != nil {
			return fmt.Errorf("apply lead update: %w", err)
		}
	}
	if update.ProfilePictureURL != nil {
		if err := p.repo.SetLeadProfilePicture(ctx, lead.ID, *update.ProfilePictureURL); err != nil {
			return fmt.Errorf("apply profile picture: %w", err)
		}
	}
	if update.AIEnabled != nil {
		if err := p.repo.SetLeadAI(ctx, lead.ID, *update.AIEnabled); err != nil {
			return fmt.Errorf("apply ai flag: %w", err)
		}
	}
	return nil
}

// resolveLead finds the lead by id or phone, creating it on first
// contact. The phone number is the external contact key.
func (p *MessagingWebhookProcessor) resolveLead(ctx context.Context, leadID, phone, name string) (*repo.Lead, error) {
	if leadID != "" {
		lead, err := p.repo.GetLead(ctx, leadID)
		if err == nil {
			return lead, nil
		}
	}

	phone = validate.FormatPhone(phone)
	if phone == "" {
		return nil, fmt.Errorf("event carries neither a known lead id nor a phone")
	}

	lead, err := p.repo.GetLeadByPhone(ctx, phone)
	if err == nil {
		return lead, nil
	}

	if name == "" {
		name = phone
	}
	created, err := p.repo.InsertLead(ctx, repo.Lead{
		ID:          uuid.NewString(),
		Name:        name,
		PhoneNumber: phone,
		AIEnabled:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("create lead for %s: %w", phone, err)
	}
	p.logger.Info("created lead from inbound message", "lead_id", created.ID)
	return created, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
