package report

import (
	"fmt"

	"printdesk/internal/repo"

	"github.com/xuri/excelize/v2"
)

// OrderRow is one row of the orders worksheet.
type OrderRow struct {
	ID          string
	Cliente     string
	Telefono    string
	Descripcion string
	Estado      string
	Total       int64
	Abono       int64
	Saldo       int64
	Fecha       string
}

// BuildOrderRows projects orders into worksheet rows.
func BuildOrderRows(orders []repo.Order) []OrderRow {
	rows := make([]OrderRow, 0, len(orders))
	for _, o := range orders {
		description := ""
		if o.Description != nil {
			description = *o.Description
		}
		rows = append(rows, OrderRow{
			ID:          o.ID,
			Cliente:     leadName(o),
			Telefono:    leadPhone(o),
			Descripcion: description,
			Estado:      o.Status,
			Total:       o.TotalAmount,
			Abono:       o.DepositAmount,
			Saldo:       o.Balance(),
			Fecha:       formatDateTime(o.CreatedAt),
		})
	}
	return rows
}

// OrdersExcel renders the order export workbook.
func OrdersExcel(orders []repo.Order) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Órdenes"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := []string{"ID", "Cliente", "Telefono", "Descripcion", "Estado", "Total", "Abono", "Saldo", "Fecha"}
	if err := writeRow(f, sheet, 1, toAny(headers)); err != nil {
		return nil, err
	}

	for i, row := range BuildOrderRows(orders) {
		cells := []any{row.ID, row.Cliente, row.Telefono, row.Descripcion, row.Estado, row.Total, row.Abono, row.Saldo, row.Fecha}
		if err := writeRow(f, sheet, i+2, cells); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write orders workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// AuditRow is one row of the audit worksheet.
type AuditRow struct {
	Fecha    string
	Orden    string
	Cliente  string
	Tipo     string
	Detalles string
	Usuario  string
}

// BuildAuditRows projects audit entries into worksheet rows.
func BuildAuditRows(entries []repo.AuditLogEntry) []AuditRow {
	rows := make([]AuditRow, 0, len(entries))
	for _, e := range entries {
		cliente := "Sistema"
		if e.LeadName != nil && *e.LeadName != "" {
			cliente = *e.LeadName
		}
		rows = append(rows, AuditRow{
			Fecha:    formatDateTime(e.CreatedAt),
			Orden:    shortID(e.OrderID, 8),
			Cliente:  cliente,
			Tipo:     e.ChangeType,
			Detalles: e.Details,
			Usuario:  e.ChangedBy,
		})
	}
	return rows
}

// AuditExcel renders the audit trail workbook.
func AuditExcel(entries []repo.AuditLogEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Auditoria"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := []string{"Fecha", "Orden", "Cliente", "Tipo", "Detalles", "Usuario"}
	if err := writeRow(f, sheet, 1, toAny(headers)); err != nil {
		return nil, err
	}

	for i, row := range BuildAuditRows(entries) {
		cells := []any{row.Fecha, row.Orden, row.Cliente, row.Tipo, row.Detalles, row.Usuario}
		if err := writeRow(f, sheet, i+2, cells); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write audit workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func toAny(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
