package repository

import (
	"errors"
	"fmt"

	"stockpos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter kinds.
const (
	CounterSale     = "sale"
	CounterTransfer = "transfer"
)

// CounterRepository allocates per-day document sequence numbers. NextTx must
// run inside the transaction that inserts the owning document so the number
// is only consumed when the document commits, and concurrent creators
// serialize on the counter row lock instead of racing a count query.
type CounterRepository interface {
	NextTx(tx *gorm.DB, kind, day string) (int, error)
}

type counterRepo struct{ db *gorm.DB }

func NewCounterRepository(db *gorm.DB) CounterRepository { return &counterRepo{db: db} }

func (r *counterRepo) NextTx(tx *gorm.DB, kind, day string) (int, error) {
	var c model.DocumentCounter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("kind = ? AND day = ?", kind, day).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First document of the day. A concurrent first-creator may win the
		// insert; DoNothing + re-lock resolves the race.
		c = model.DocumentCounter{Kind: kind, Day: day}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error; err != nil {
			return 0, err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("kind = ? AND day = ?", kind, day).
			First(&c).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	next := c.Value + 1
	if err := tx.Model(&model.DocumentCounter{}).
		Where("kind = ? AND day = ?", kind, day).
		Update("value", next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

// FormatSaleNumber renders V<YYYYMMDD><4-digit sequence>.
func FormatSaleNumber(day string, seq int) string {
	return fmt.Sprintf("V%s%04d", day, seq)
}

// FormatTransferReference renders TRF<YYYYMMDD><4-digit sequence>.
func FormatTransferReference(day string, seq int) string {
	return fmt.Sprintf("TRF%s%04d", day, seq)
}
