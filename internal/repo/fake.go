package repo

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"
)

// FakeRepository is an in-memory Repository used by tests. Writes can
// be forced to fail through the Err* fields.
type FakeRepository struct {
	mu sync.Mutex

	LeadRows         map[string]Lead
	OrderRows        map[string]Order
	MessageRows      []Message
	NotificationRows map[string]Notification
	AuditRows        []AuditLogEntry
	FileRows         map[string]FileMetadata

	ErrUpdateOrderStatus        error
	ErrUpdateOrderPayment       error
	ErrUpdateOrderFields        error
	ErrInsertAuditLog           error
	ErrUpdateLead               error
	ErrMarkAllNotificationsRead error

	OrderFieldWrites int
}

// FieldWrites reports how many generic field updates landed.
func (f *FakeRepository) FieldWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.OrderFieldWrites
}

// NewFakeRepository creates an empty fake.
func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		LeadRows:         map[string]Lead{},
		OrderRows:        map[string]Order{},
		NotificationRows: map[string]Notification{},
		FileRows:         map[string]FileMetadata{},
	}
}

func (f *FakeRepository) Close() {}

func (f *FakeRepository) Ping(ctx context.Context) error { return nil }

func (f *FakeRepository) RunMigrations(ctx context.Context, fsys fs.FS) error { return nil }

func (f *FakeRepository) ListLeads(ctx context.Context) ([]Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Lead, 0, len(f.LeadRows))
	for _, l := range f.LeadRows {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (f *FakeRepository) GetLead(ctx context.Context, id string) (*Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.LeadRows[id]
	if !ok {
		return nil, fmt.Errorf("get lead %s: %w", id, ErrNotFound)
	}
	return &l, nil
}

func (f *FakeRepository) GetLeadByPhone(ctx context.Context, phone string) (*Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.LeadRows {
		if l.PhoneNumber == phone {
			return &l, nil
		}
	}
	return nil, fmt.Errorf("get lead by phone: %w", ErrNotFound)
}

func (f *FakeRepository) InsertLead(ctx context.Context, lead Lead) (*Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead.CreatedAt = time.Now()
	lead.UpdatedAt = lead.CreatedAt
	f.LeadRows[lead.ID] = lead
	return &lead, nil
}

func (f *FakeRepository) UpdateLead(ctx context.Context, id string, patch LeadPatch) error {
	if f.ErrUpdateLead != nil {
		return f.ErrUpdateLead
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.LeadRows[id]
	if !ok {
		return fmt.Errorf("update lead %s: %w", id, ErrNotFound)
	}
	if patch.Name != nil {
		l.Name = *patch.Name
	}
	if patch.PhoneNumber != nil {
		l.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Email != nil {
		l.Email = patch.Email
	}
	if patch.RUT != nil {
		l.RUT = patch.RUT
	}
	if patch.Address != nil {
		l.Address = patch.Address
	}
	if patch.BusinessName != nil {
		l.BusinessName = patch.BusinessName
	}
	f.LeadRows[id] = l
	return nil
}

func (f *FakeRepository) SetLeadAI(ctx context.Context, id string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.LeadRows[id]
	if !ok {
		return fmt.Errorf("set lead ai %s: %w", id, ErrNotFound)
	}
	l.AIEnabled = enabled
	f.LeadRows[id] = l
	return nil
}

func (f *FakeRepository) SetLeadProfilePicture(ctx context.Context, id, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.LeadRows[id]
	if !ok {
		return fmt.Errorf("set lead profile picture %s: %w", id, ErrNotFound)
	}
	l.ProfilePictureURL = &url
	f.LeadRows[id] = l
	return nil
}

func (f *FakeRepository) TouchLeadInteraction(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.LeadRows[id]; ok {
		l.LastInteraction = &at
		f.LeadRows[id] = l
	}
	return nil
}

func (f *FakeRepository) ListOrders(ctx context.Context) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Order, 0, len(f.OrderRows))
	for _, o := range f.OrderRows {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *FakeRepository) GetOrder(ctx context.Context, id string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.OrderRows[id]
	if !ok {
		return nil, fmt.Errorf("get order %s: %w", id, ErrNotFound)
	}
	return &o, nil
}

func (f *FakeRepository) UpdateOrderStatus(ctx context.Context, id, status string) error {
	if f.ErrUpdateOrderStatus != nil {
		return f.ErrUpdateOrderStatus
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.OrderRows[id]
	if !ok {
		return fmt.Errorf("update order status %s: %w", id, ErrNotFound)
	}
	o.Status = status
	f.OrderRows[id] = o
	return nil
}

func (f *FakeRepository) UpdateOrderPayment(ctx context.Context, id string, deposit, total int64) error {
	if f.ErrUpdateOrderPayment != nil {
		return f.ErrUpdateOrderPayment
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.OrderRows[id]
	if !ok {
		return fmt.Errorf("update order payment %s: %w", id, ErrNotFound)
	}
	o.DepositAmount = deposit
	o.TotalAmount = total
	f.OrderRows[id] = o
	return nil
}

func (f *FakeRepository) UpdateOrderFields(ctx context.Context, id string, patch OrderFieldPatch) error {
	if f.ErrUpdateOrderFields != nil {
		return f.ErrUpdateOrderFields
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.OrderRows[id]
	if !ok {
		return fmt.Errorf("update order fields %s: %w", id, ErrNotFound)
	}
	f.OrderFieldWrites++
	if patch.Description != nil {
		o.Description = patch.Description
	}
	if patch.Material != nil {
		o.Material = patch.Material
	}
	if patch.Dimensions != nil {
		o.Dimensions = patch.Dimensions
	}
	if patch.Quantity != nil {
		o.Quantity = patch.Quantity
	}
	if patch.PrintSides != nil {
		o.PrintSides = patch.PrintSides
	}
	if patch.Finishing != nil {
		o.Finishing = patch.Finishing
	}
	if patch.FileURLs != nil {
		o.FileURLs = patch.FileURLs
	}
	f.OrderRows[id] = o
	return nil
}

func (f *FakeRepository) DeleteOrders(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.OrderRows, id)
	}
	return nil
}

func (f *FakeRepository) ListMessages(ctx context.Context) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.MessageRows))
	copy(out, f.MessageRows)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *FakeRepository) ListLeadMessages(ctx context.Context, leadID string, limit int) ([]Message, error) {
	all, _ := f.ListMessages(ctx)
	var out []Message
	for _, m := range all {
		if m.LeadID == leadID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *FakeRepository) InsertMessage(ctx context.Context, msg Message) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	f.MessageRows = append(f.MessageRows, msg)
	return &msg, nil
}

func (f *FakeRepository) ListNotifications(ctx context.Context, limit int) ([]Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notification, 0, len(f.NotificationRows))
	for _, n := range f.NotificationRows {
		if !n.IsArchived {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeRepository) InsertNotification(ctx context.Context, n Notification) (*Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	f.NotificationRows[n.ID] = n
	return &n, nil
}

func (f *FakeRepository) MarkNotificationRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.NotificationRows[id]
	if !ok {
		return fmt.Errorf("mark notification read %s: %w", id, ErrNotFound)
	}
	n.IsRead = true
	f.NotificationRows[id] = n
	return nil
}

func (f *FakeRepository) MarkAllNotificationsRead(ctx context.Context) error {
	if f.ErrMarkAllNotificationsRead != nil {
		return f.ErrMarkAllNotificationsRead
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, n := range f.NotificationRows {
		n.IsRead = true
		f.NotificationRows[id] = n
	}
	return nil
}

func (f *FakeRepository) ArchiveNotification(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.NotificationRows[id]
	if !ok {
		return fmt.Errorf("archive notification %s: %w", id, ErrNotFound)
	}
	n.IsArchived = true
	f.NotificationRows[id] = n
	return nil
}

func (f *FakeRepository) InsertAuditLog(ctx context.Context, entry AuditLogEntry) error {
	if f.ErrInsertAuditLog != nil {
		return f.ErrInsertAuditLog
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	f.AuditRows = append(f.AuditRows, entry)
	return nil
}

func (f *FakeRepository) ListOrderAuditLogs(ctx context.Context, orderID string) ([]AuditLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []AuditLogEntry
	for _, e := range f.AuditRows {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *FakeRepository) ListAuditLogs(ctx context.Context, limit int) ([]AuditLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]AuditLogEntry, len(f.AuditRows))
	copy(out, f.AuditRows)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeRepository) ListFiles(ctx context.Context) ([]FileMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FileMetadata, 0, len(f.FileRows))
	for _, file := range f.FileRows {
		out = append(out, file)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *FakeRepository) InsertFileMetadata(ctx context.Context, file FileMetadata) (*FileMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}
	f.FileRows[file.ID] = file
	return &file, nil
}

func (f *FakeRepository) DeleteFileMetadata(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, file := range f.FileRows {
		if file.FilePath == path {
			delete(f.FileRows, id)
		}
	}
	return nil
}
