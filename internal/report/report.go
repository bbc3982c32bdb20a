// Package report renders the dashboard's PDF and Excel exports.
package report

import (
	"time"

	"printdesk/internal/repo"
	"printdesk/internal/views"
)

// Stats summarizes the exported order set.
type Stats struct {
	TotalSales     int64
	TotalOrders    int
	PendingBalance int64
}

// ComputeStats aggregates totals over the order set. Overpaid orders
// contribute nothing to the pending balance.
func ComputeStats(orders []repo.Order) Stats {
	s := Stats{TotalOrders: len(orders)}
	for _, o := range orders {
		s.TotalSales += o.TotalAmount
		if balance := o.Balance(); balance > 0 {
			s.PendingBalance += balance
		}
	}
	return s
}

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatDateTime(t time.Time) string {
	return t.Format(dateTimeLayout)
}

func leadName(o repo.Order) string {
	if o.Lead != nil && o.Lead.Name != "" {
		return o.Lead.Name
	}
	return "S/N"
}

func leadPhone(o repo.Order) string {
	if o.Lead != nil {
		return o.Lead.PhoneNumber
	}
	return ""
}

func shortID(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}

func money(amount int64) string {
	return "$" + views.FormatCLP(amount)
}
