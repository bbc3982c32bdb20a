// Package views computes the dashboard's list, board and detail
// projections over in-memory store snapshots. Filtering and sorting
// run over the full set on every call, which only works because the
// expected entity counts are single-business scale.
package views

import (
	"fmt"
	"strings"

	"printdesk/internal/mutate"
	"printdesk/internal/repo"
)

// PaidLabel is the payment state shown for fully paid orders.
const PaidLabel = "PAGADO"

// IsPaid classifies an order as fully paid when nothing is owed. A
// negative balance is not clamped; it still reads as paid.
func IsPaid(o repo.Order) bool {
	return o.Balance() <= 0
}

// PaymentLabel renders the payment state shown on cards and tables:
// "PAGADO" or "Debe $<balance>".
func PaymentLabel(o repo.Order) string {
	if IsPaid(o) {
		return PaidLabel
	}
	return "Debe $" + FormatCLP(o.Balance())
}

// OrderFilter narrows the order list.
type OrderFilter struct {
	Status string
	LeadID string
	Paid   *bool
	Query  string
}

// FilterOrders applies the filter over a snapshot, preserving its order.
func FilterOrders(orders []repo.Order, f OrderFilter) []repo.Order {
	out := make([]repo.Order, 0, len(orders))
	for _, o := range orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.LeadID != "" && o.LeadID != f.LeadID {
			continue
		}
		if f.Paid != nil && IsPaid(o) != *f.Paid {
			continue
		}
		out = append(out, o)
	}
	if f.Query != "" {
		out = SearchOrders(out, f.Query)
	}
	return out
}

// BoardColumn is one kanban column.
type BoardColumn struct {
	Status string       `json:"status"`
	Orders []repo.Order `json:"orders"`
}

// GroupByStatus projects orders onto the kanban board, one column per
// workflow stage in board order. Orders keep their snapshot order
// inside a column; positions are not persisted, only membership.
func GroupByStatus(orders []repo.Order) []BoardColumn {
	grouped := map[string][]repo.Order{}
	for _, o := range orders {
		grouped[o.Status] = append(grouped[o.Status], o)
	}

	columns := make([]BoardColumn, 0, len(mutate.WorkflowStages))
	for _, status := range mutate.WorkflowStages {
		columns = append(columns, BoardColumn{Status: status, Orders: grouped[status]})
	}
	return columns
}

// Paginate slices one page out of items. Pages are 1-based.
func Paginate[T any](items []T, page, perPage int) []T {
	if perPage <= 0 {
		return items
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// BuildQuoteText composes the WhatsApp quote message from an order's
// specification fields.
func BuildQuoteText(o repo.Order) string {
	var specs []string
	if o.Material != nil && *o.Material != "" {
		specs = append(specs, *o.Material)
	}
	if o.Dimensions != nil && *o.Dimensions != "" {
		specs = append(specs, *o.Dimensions)
	}
	if o.Quantity != nil && *o.Quantity > 0 {
		specs = append(specs, fmt.Sprintf("%d un.", *o.Quantity))
	}
	if o.PrintSides != nil && *o.PrintSides != "" {
		specs = append(specs, *o.PrintSides)
	}
	specs = append(specs, o.Finishing...)

	var b strings.Builder
	b.WriteString("Detalle de tu pedido:\n")
	if o.Description != nil && *o.Description != "" {
		b.WriteString(*o.Description)
		b.WriteString("\n")
	}
	if len(specs) > 0 {
		b.WriteString("Especificaciones: ")
		b.WriteString(strings.Join(specs, ", "))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Total: $%s", FormatCLP(o.TotalAmount)))
	if o.DepositAmount > 0 {
		b.WriteString(fmt.Sprintf("\nAbono: $%s", FormatCLP(o.DepositAmount)))
		b.WriteString(fmt.Sprintf("\nSaldo: $%s", FormatCLP(o.Balance())))
	}
	return b.String()
}
