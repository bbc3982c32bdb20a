package httpserver

import (
	"time"

	"printdesk/internal/repo"
	"printdesk/internal/views"
)

type leadJSON struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	PhoneNumber       string     `json:"phone_number"`
	Email             *string    `json:"email,omitempty"`
	RUT               *string    `json:"rut,omitempty"`
	Address           *string    `json:"address,omitempty"`
	BusinessName      *string    `json:"business_name,omitempty"`
	AIEnabled         bool       `json:"ai_enabled"`
	ProfilePictureURL *string    `json:"profile_picture_url,omitempty"`
	LastInteraction   *time.Time `json:"last_interaction,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toLeadJSON(l repo.Lead) leadJSON {
	return leadJSON{
		ID:                l.ID,
		Name:              l.Name,
		PhoneNumber:       l.PhoneNumber,
		Email:             l.Email,
		RUT:               l.RUT,
		Address:           l.Address,
		BusinessName:      l.BusinessName,
		AIEnabled:         l.AIEnabled,
		ProfilePictureURL: l.ProfilePictureURL,
		LastInteraction:   l.LastInteraction,
		CreatedAt:         l.CreatedAt,
	}
}

type orderJSON struct {
	ID            string    `json:"id"`
	LeadID        string    `json:"lead_id"`
	Status        string    `json:"status"`
	TotalAmount   int64     `json:"total_amount"`
	DepositAmount int64     `json:"deposit_amount"`
	Balance       int64     `json:"balance"`
	PaymentLabel  string    `json:"payment_label"`
	Description   *string   `json:"description,omitempty"`
	Material      *string   `json:"material,omitempty"`
	Dimensions    *string   `json:"dimensions,omitempty"`
	Quantity      *int      `json:"quantity,omitempty"`
	PrintSides    *string   `json:"print_sides,omitempty"`
	Finishing     []string  `json:"finishing,omitempty"`
	FileURLs      []string  `json:"file_urls,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Lead          *leadJSON `json:"lead,omitempty"`
}

func toOrderJSON(o repo.Order) orderJSON {
	out := orderJSON{
		ID:            o.ID,
		LeadID:        o.LeadID,
		Status:        o.Status,
		TotalAmount:   o.TotalAmount,
		DepositAmount: o.DepositAmount,
		Balance:       o.Balance(),
		PaymentLabel:  views.PaymentLabel(o),
		Description:   o.Description,
		Material:      o.Material,
		Dimensions:    o.Dimensions,
		Quantity:      o.Quantity,
		PrintSides:    o.PrintSides,
		Finishing:     o.Finishing,
		FileURLs:      o.FileURLs,
		CreatedAt:     o.CreatedAt,
	}
	if o.Lead != nil {
		lead := toLeadJSON(*o.Lead)
		out.Lead = &lead
	}
	return out
}

func toOrdersJSON(orders []repo.Order) []orderJSON {
	out := make([]orderJSON, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderJSON(o))
	}
	return out
}

type messageJSON struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toMessageJSON(m repo.Message) messageJSON {
	return messageJSON{
		ID:        m.ID,
		LeadID:    m.LeadID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

type notificationJSON struct {
	ID        string    `json:"id"`
	LeadID    *string   `json:"lead_id,omitempty"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
	Lead      *leadJSON `json:"lead,omitempty"`
}

func toNotificationJSON(n repo.Notification) notificationJSON {
	out := notificationJSON{
		ID:        n.ID,
		LeadID:    n.LeadID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.Lead != nil {
		lead := toLeadJSON(*n.Lead)
		out.Lead = &lead
	}
	return out
}

type auditJSON struct {
	ID               string    `json:"id"`
	OrderID          string    `json:"order_id"`
	ChangeType       string    `json:"change_type"`
	OldStatus        *string   `json:"old_status,omitempty"`
	NewStatus        *string   `json:"new_status,omitempty"`
	OldAmount        *int64    `json:"old_amount,omitempty"`
	NewAmount        *int64    `json:"new_amount,omitempty"`
	Details          string    `json:"details"`
	ChangedBy        string    `json:"changed_by"`
	CreatedAt        time.Time `json:"created_at"`
	OrderDescription *string   `json:"order_description,omitempty"`
	LeadName         *string   `json:"lead_name,omitempty"`
}

func toAuditJSON(e repo.AuditLogEntry) auditJSON {
	return auditJSON{
		ID:               e.ID,
		OrderID:          e.OrderID,
		ChangeType:       e.ChangeType,
		OldStatus:        e.OldStatus,
		NewStatus:        e.NewStatus,
		OldAmount:        e.OldAmount,
		NewAmount:        e.NewAmount,
		Details:          e.Details,
		ChangedBy:        e.ChangedBy,
		CreatedAt:        e.CreatedAt,
		OrderDescription: e.OrderDescription,
		LeadName:         e.LeadName,
	}
}

type mutationResponse struct {
	Status   string `json:"status"`
	Notified bool   `json:"notified"`
	Message  string `json:"message,omitempty"`
}
