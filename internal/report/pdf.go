package report

import (
	"fmt"
	"strings"
	"time"

	"printdesk/internal/repo"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// OrdersPDF renders the strategic order report: header, summary stats
// and one table row per order.
func OrdersPDF(orders []repo.Order, title string, stats Stats) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	if title == "" {
		title = "Reporte Estratégico"
	}
	m.AddRow(14,
		text.NewCol(12, title, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(8,
		text.NewCol(12, "Generado: "+formatDateTime(time.Now()), props.Text{Size: 9}),
	)

	m.AddRow(10,
		text.NewCol(12, "Resumen General", props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   2,
		}),
	)
	m.AddRow(8,
		text.NewCol(4, "Total Ventas: "+money(stats.TotalSales), props.Text{Size: 10}),
		text.NewCol(4, fmt.Sprintf("Total Órdenes: %d", stats.TotalOrders), props.Text{Size: 10}),
		text.NewCol(4, "Saldo Pendiente: "+money(stats.PendingBalance), props.Text{Size: 10}),
	)

	m.AddRow(10,
		text.NewCol(1, "ID", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Cliente", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Descripción", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Estado", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(1, "Fecha", props.Text{Style: fontstyle.Bold, Size: 9}),
	)
	m.AddRow(1, col.New(12))

	for _, o := range orders {
		description := ""
		if o.Description != nil {
			description = *o.Description
		}
		if len(description) > 30 {
			description = description[:30] + "..."
		}
		m.AddRow(8,
			text.NewCol(1, shortID(o.ID, 5), props.Text{Size: 8}),
			text.NewCol(3, leadName(o), props.Text{Size: 8}),
			text.NewCol(3, description, props.Text{Size: 8}),
			text.NewCol(2, strings.ToUpper(o.Status), props.Text{Size: 8}),
			text.NewCol(2, money(o.TotalAmount), props.Text{Size: 8, Align: align.Right}),
			text.NewCol(1, formatDate(o.CreatedAt), props.Text{Size: 8}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate orders pdf: %w", err)
	}
	return doc.GetBytes(), nil
}
