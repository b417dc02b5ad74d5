package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Audit action kinds. Each kind has a fixed detail schema, built by the
// helpers in service/audit_detail.go, so consumers can assert on shape.
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionConfirm  = "confirm"
	ActionCancel   = "cancel"
	ActionPayment  = "payment"
	ActionMovement = "movement"
)

// AuditDetail is the structured JSONB payload of an audit entry.
type AuditDetail map[string]any

func (d AuditDetail) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

func (d *AuditDetail) Scan(src any) error {
	if src == nil {
		*d = AuditDetail{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("audit detail: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, d)
}

// AuditEntry is the append-only log of domain events: one entry per state
// transition, sufficient to reconstruct the transition without consulting
// other tables. Entries are never mutated or deleted.
type AuditEntry struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ActorID  *uuid.UUID `gorm:"type:uuid;index:idx_audit_actor_action,priority:1"`
	Action   string     `gorm:"not null;index:idx_audit_actor_action,priority:2"`
	Entity   string     `gorm:"not null;index:idx_audit_entity,priority:1"`
	EntityID *uuid.UUID `gorm:"type:uuid;index:idx_audit_entity,priority:2"`

	Detail AuditDetail `gorm:"type:jsonb;not null;default:'{}'"`

	CreatedAt time.Time `gorm:"index"`
}

func (AuditEntry) TableName() string { return "audit_entries" }
