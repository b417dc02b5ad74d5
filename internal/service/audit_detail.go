package service

// audit_detail.go
// Detail-payload builders for audit entries. Each action has a fixed schema
// so log consumers can assert on shape instead of sniffing keys.

import (
	"stockpos/internal/model"

	"github.com/shopspring/decimal"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

func saleDetail(s *model.Sale) model.AuditDetail {
	lines := make([]map[string]any, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, map[string]any{
			"product_id":   l.ProductID.String(),
			"warehouse_id": l.WarehouseID.String(),
			"quantity":     l.Quantity,
			"unit_price":   l.UnitPrice.String(),
		})
	}
	return model.AuditDetail{
		"number":   s.Number,
		"status":   s.Status,
		"total":    s.Total.String(),
		"subtotal": s.Subtotal.String(),
		"lines":    lines,
	}
}

func paymentDetail(s *model.Sale, amount decimal.Decimal, method string) model.AuditDetail {
	return model.AuditDetail{
		"number":         s.Number,
		"amount":         amount.String(),
		"method":         method,
		"paid":           s.Paid.String(),
		"remaining":      s.Remaining.String(),
		"payment_status": s.PaymentStatus,
	}
}

func transferDetail(t *model.Transfer) model.AuditDetail {
	lines := make([]map[string]any, 0, len(t.Lines))
	for _, l := range t.Lines {
		lines = append(lines, map[string]any{
			"product_id": l.ProductID.String(),
			"quantity":   l.Quantity,
		})
	}
	return model.AuditDetail{
		"reference":           t.Reference,
		"status":              t.Status,
		"source_warehouse_id": t.SourceWarehouseID.String(),
		"dest_warehouse_id":   t.DestWarehouseID.String(),
		"lines":               lines,
	}
}

func movementDetail(m *model.StockMovement, before, after int) model.AuditDetail {
	d := model.AuditDetail{
		"type":            m.Type,
		"source":          m.Source,
		"product_id":      m.ProductID.String(),
		"quantity":        m.Quantity,
		"quantity_before": before,
		"quantity_after":  after,
		"reason":          m.Reason,
	}
	if m.WarehouseID != nil {
		d["warehouse_id"] = m.WarehouseID.String()
	}
	return d
}
