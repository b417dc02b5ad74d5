package worker

// alert_worker.go
// Processes low-stock alert jobs from QueueAlerts. Delivery goes through the
// SMTP circuit breaker so a dead relay cannot pile up blocked workers.

import (
	"context"
	"encoding/json"
	"fmt"

	"stockpos/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const JobTypeLowStock = "low_stock"

// LowStockAlert is the job envelope sent to QueueAlerts when an entry drops
// to or below its alert threshold.
type LowStockAlert struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int    `json:"quantity"`
	Reserved    int    `json:"reserved"`
	Available   int    `json:"available"`
	Threshold   int    `json:"threshold"`
}

// AlertWorker emails low-stock notifications to the configured recipient.
type AlertWorker struct {
	mailer    *infra.Mailer
	cb        *infra.CircuitBreaker
	rdb       *redis.Client
	recipient string
}

func NewAlertWorker(mailer *infra.Mailer, cb *infra.CircuitBreaker, rdb *redis.Client, recipient string) *AlertWorker {
	return &AlertWorker{mailer: mailer, cb: cb, rdb: rdb, recipient: recipient}
}

// Process sends the alert email. On delivery failure the job goes to the DLQ
// rather than being retried inline.
func (w *AlertWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload LowStockAlert
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return
	}
	if w.recipient == "" {
		log.Warn().Msg("alert_worker: no alert recipient configured — skipping")
		return
	}

	subject := fmt.Sprintf("Low stock: product %s", payload.ProductID)
	body := fmt.Sprintf(
		"Product %s in warehouse %s is low on stock.\n\nOn hand: %d\nReserved: %d\nAvailable: %d\nAlert threshold: %d\n",
		payload.ProductID, payload.WarehouseID,
		payload.Quantity, payload.Reserved, payload.Available, payload.Threshold,
	)

	err := w.cb.Execute(func() error {
		return w.mailer.Send(w.recipient, subject, body)
	})
	if err != nil {
		log.Error().Err(err).
			Str("product_id", payload.ProductID).
			Str("warehouse_id", payload.WarehouseID).
			Msg("alert_worker: failed to send alert email")
		Park(ctx, w.rdb, QueueAlerts, JobTypeLowStock, raw, err.Error())
		return
	}
	log.Info().
		Str("product_id", payload.ProductID).
		Str("warehouse_id", payload.WarehouseID).
		Int("available", payload.Available).
		Msg("alert_worker: low-stock alert sent")
}
