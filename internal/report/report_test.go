package report

import (
	"bytes"
	"testing"
	"time"

	"printdesk/internal/repo"

	"github.com/xuri/excelize/v2"
)

func strPtr(s string) *string { return &s }

func sampleOrders() []repo.Order {
	return []repo.Order{
		{
			ID:            "aaaa-bbbb-cccc",
			Status:        "DISEÑO",
			TotalAmount:   10000,
			DepositAmount: 4000,
			Description:   strPtr("Tarjetas"),
			CreatedAt:     time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC),
			Lead:          &repo.Lead{ID: "l1", Name: "María", PhoneNumber: "+56911112222"},
		},
		{
			ID:            "dddd-eeee-ffff",
			Status:        "ENTREGADO",
			TotalAmount:   5000,
			DepositAmount: 6000,
			CreatedAt:     time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC),
		},
	}
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(sampleOrders())

	if stats.TotalOrders != 2 {
		t.Errorf("TotalOrders = %d", stats.TotalOrders)
	}
	if stats.TotalSales != 15000 {
		t.Errorf("TotalSales = %d", stats.TotalSales)
	}
	// The overpaid order contributes nothing.
	if stats.PendingBalance != 6000 {
		t.Errorf("PendingBalance = %d", stats.PendingBalance)
	}
}

func TestBuildOrderRows(t *testing.T) {
	rows := BuildOrderRows(sampleOrders())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.Cliente != "María" || first.Telefono != "+56911112222" {
		t.Errorf("lead columns wrong: %+v", first)
	}
	if first.Saldo != 6000 {
		t.Errorf("Saldo = %d, want 6000", first.Saldo)
	}
	if first.Fecha != "14/03/2025 10:30" {
		t.Errorf("Fecha = %q", first.Fecha)
	}

	second := rows[1]
	if second.Cliente != "S/N" {
		t.Errorf("order without lead should read S/N, got %q", second.Cliente)
	}
	if second.Saldo != -1000 {
		t.Errorf("Saldo = %d, want -1000", second.Saldo)
	}
}

func TestOrdersExcelWorkbook(t *testing.T) {
	data, err := OrdersExcel(sampleOrders())
	if err != nil {
		t.Fatalf("OrdersExcel: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Órdenes")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][7] != "Saldo" {
		t.Errorf("unexpected header row %v", rows[0])
	}
	if rows[1][1] != "María" {
		t.Errorf("first data row %v", rows[1])
	}
}

func TestBuildAuditRows(t *testing.T) {
	old := int64(4000)
	newAmount := int64(10000)
	entries := []repo.AuditLogEntry{
		{
			ID:         "e1",
			OrderID:    "aaaa-bbbb-cccc",
			ChangeType: repo.ChangeDeposit,
			OldAmount:  &old,
			NewAmount:  &newAmount,
			Details:    "Abono actualizado: $4000 -> $10000",
			ChangedBy:  "agente",
			CreatedAt:  time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC),
			LeadName:   strPtr("María"),
		},
		{
			ID:         "e2",
			OrderID:    "dddd-eeee-ffff",
			ChangeType: repo.ChangeStatus,
			Details:    "Estado cambiado de NUEVO a DISEÑO",
			ChangedBy:  "system",
			CreatedAt:  time.Date(2025, 3, 14, 13, 0, 0, 0, time.UTC),
		},
	}

	rows := BuildAuditRows(entries)
	if rows[0].Orden != "aaaa-bbb" {
		t.Errorf("Orden = %q, want 8-char prefix", rows[0].Orden)
	}
	if rows[0].Cliente != "María" {
		t.Errorf("Cliente = %q", rows[0].Cliente)
	}
	if rows[1].Cliente != "Sistema" {
		t.Errorf("entry without lead should read Sistema, got %q", rows[1].Cliente)
	}
}

func TestOrdersPDFProducesDocument(t *testing.T) {
	data, err := OrdersPDF(sampleOrders(), "", ComputeStats(sampleOrders()))
	if err != nil {
		t.Fatalf("OrdersPDF: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty pdf")
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output does not look like a PDF: %q", data[:8])
	}
}
