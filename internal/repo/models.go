package repo

import "time"

// Lead represents a customer contact record.
type Lead struct {
	ID                string
	Name              string
	PhoneNumber       string
	Email             *string
	RUT               *string
	Address           *string
	BusinessName      *string
	AIEnabled         bool
	ProfilePictureURL *string
	LastInteraction   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Order represents a print job tracked through workflow stages.
type Order struct {
	ID            string
	LeadID        string
	Status        string
	TotalAmount   int64
	DepositAmount int64
	Description   *string
	Material      *string
	Dimensions    *string
	Quantity      *int
	PrintSides    *string
	Finishing     []string
	FileURLs      []string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Lead is the joined owner row when the query requests it.
	Lead *Lead
}

// Balance is the amount still owed on the order.
func (o Order) Balance() int64 {
	return o.TotalAmount - o.DepositAmount
}

// Message is one entry of a lead's conversation log. Append-only.
type Message struct {
	ID        string
	LeadID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Message roles as stored in message_logs.
const (
	RoleAssistant = "assistant"
	RoleHuman     = "human"
)

// Notification is an inbox item for the dashboard operator.
type Notification struct {
	ID         string
	LeadID     *string
	Type       string
	Title      string
	Message    string
	IsRead     bool
	IsArchived bool
	CreatedAt  time.Time

	Lead *Lead
}

// Audit change types.
const (
	ChangeStatus      = "STATUS_CHANGE"
	ChangeDeposit     = "PAYMENT_DEPOSIT"
	ChangeTotalUpdate = "PAYMENT_TOTAL_UPDATE"
)

// AuditLogEntry records a single tracked change on an order. Immutable
// once written.
type AuditLogEntry struct {
	ID         string
	OrderID    string
	ChangeType string
	OldStatus  *string
	NewStatus  *string
	OldAmount  *int64
	NewAmount  *int64
	Details    string
	ChangedBy  string
	CreatedAt  time.Time

	// Joined context for the global audit listing.
	OrderDescription *string
	LeadName         *string
}

// FileMetadata describes one stored file. Storage itself is flat; the
// hierarchical path is reconstructed for browsing.
type FileMetadata struct {
	ID        string
	FilePath  string
	FileName  string
	MimeType  string
	LeadID    *string
	Status    string
	CreatedAt time.Time
}

// LeadPatch carries optional lead field updates.
type LeadPatch struct {
	Name         *string
	PhoneNumber  *string
	Email        *string
	RUT          *string
	Address      *string
	BusinessName *string
}

// OrderFieldPatch carries the autosave-editable order fields. Status
// and the payment amounts are deliberately absent: those only move
// through the dedicated audited operations.
type OrderFieldPatch struct {
	Description *string
	Material    *string
	Dimensions  *string
	Quantity    *int
	PrintSides  *string
	Finishing   []string
	FileURLs    []string
}

// EntityID implementations let the in-memory store key rows uniformly.

func (l Lead) EntityID() string          { return l.ID }
func (o Order) EntityID() string         { return o.ID }
func (m Message) EntityID() string       { return m.ID }
func (n Notification) EntityID() string  { return n.ID }
func (a AuditLogEntry) EntityID() string { return a.ID }
func (f FileMetadata) EntityID() string  { return f.ID }
