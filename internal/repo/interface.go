package repo

import (
	"context"
	"errors"
	"io/fs"
	"time"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for data persistence.
type Repository interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Leads
	ListLeads(ctx context.Context) ([]Lead, error)
	GetLead(ctx context.Context, id string) (*Lead, error)
	GetLeadByPhone(ctx context.Context, phone string) (*Lead, error)
	InsertLead(ctx context.Context, lead Lead) (*Lead, error)
	UpdateLead(ctx context.Context, id string, patch LeadPatch) error
	SetLeadAI(ctx context.Context, id string, enabled bool) error
	SetLeadProfilePicture(ctx context.Context, id, url string) error
	TouchLeadInteraction(ctx context.Context, id string, at time.Time) error

	// Orders
	ListOrders(ctx context.Context) ([]Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) error
	UpdateOrderPayment(ctx context.Context, id string, deposit, total int64) error
	UpdateOrderFields(ctx context.Context, id string, patch OrderFieldPatch) error
	DeleteOrders(ctx context.Context, ids []string) error

	// Messages
	ListMessages(ctx context.Context) ([]Message, error)
	ListLeadMessages(ctx context.Context, leadID string, limit int) ([]Message, error)
	InsertMessage(ctx context.Context, msg Message) (*Message, error)

	// Notifications
	ListNotifications(ctx context.Context, limit int) ([]Notification, error)
	InsertNotification(ctx context.Context, n Notification) (*Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	ArchiveNotification(ctx context.Context, id string) error

	// Audit trail
	InsertAuditLog(ctx context.Context, entry AuditLogEntry) error
	ListOrderAuditLogs(ctx context.Context, orderID string) ([]AuditLogEntry, error)
	ListAuditLogs(ctx context.Context, limit int) ([]AuditLogEntry, error)

	// File metadata
	ListFiles(ctx context.Context) ([]FileMetadata, error)
	InsertFileMetadata(ctx context.Context, f FileMetadata) (*FileMetadata, error)
	DeleteFileMetadata(ctx context.Context, path string) error
}
