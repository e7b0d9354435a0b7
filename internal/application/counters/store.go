// Package counters allocates per-year certificate sequence numbers.
//
// The store never commits on its own: AllocateNext and Advance run inside a
// transaction owned by the caller, so a failure anywhere before commit leaves
// last_seq untouched and no number is consumed.
package counters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hst-backend/internal/domain"
	"hst-backend/internal/infrastructure/database"
	"hst-backend/internal/pkg/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrLockTimeout is returned when the year's counter row stayed locked longer
// than the configured wait. Retryable.
var ErrLockTimeout = apperr.New(apperr.KindLockTimeout, "Certificate counter is busy, please retry")

type Store struct {
	DB *gorm.DB
	// LockTimeout bounds the wait for the counter row lock. Zero means wait
	// as long as the caller's context allows.
	LockTimeout time.Duration
}

// AllocateNext locks the counter row for year (creating it at 0 when missing)
// and returns last_seq+1. The lock is held until tx commits or rolls back.
func (s *Store) AllocateNext(tx *gorm.DB, year int) (int, error) {
	if year < 1 || year > 9999 {
		return 0, apperr.Validation(fmt.Sprintf("Invalid certificate year %d", year))
	}

	if err := s.applyLockTimeout(tx); err != nil {
		return 0, apperr.Persistence(err)
	}

	seed := domain.CertificateCounter{Year: year, LastSeq: 0}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, s.classify(tx, err)
	}

	var counter domain.CertificateCounter
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("year = ?", year).
		First(&counter).Error; err != nil {
		return 0, s.classify(tx, err)
	}
	return counter.LastSeq + 1, nil
}

// Advance records seq as the year's last_seq. seq must be exactly the value
// AllocateNext returned in the same transaction.
func (s *Store) Advance(tx *gorm.DB, year, seq int) error {
	res := tx.Model(&domain.CertificateCounter{}).
		Where("year = ? AND last_seq = ?", year, seq-1).
		Update("last_seq", seq)
	if res.Error != nil {
		return s.classify(tx, res.Error)
	}
	if res.RowsAffected != 1 {
		return apperr.Persistence(fmt.Errorf("counter %d moved while locked: expected last_seq %d", year, seq-1))
	}
	return nil
}

// Current returns last_seq for year, 0 when no certificate was issued yet.
func (s *Store) Current(ctx context.Context, year int) (int, error) {
	var counter domain.CertificateCounter
	err := s.DB.WithContext(ctx).Where("year = ?", year).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.Persistence(err)
	}
	return counter.LastSeq, nil
}

// List returns all counters, newest year first.
func (s *Store) List(ctx context.Context) ([]domain.CertificateCounter, error) {
	var out []domain.CertificateCounter
	if err := s.DB.WithContext(ctx).Order("year DESC").Find(&out).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	return out, nil
}

func (s *Store) applyLockTimeout(tx *gorm.DB) error {
	if s.LockTimeout <= 0 || !database.IsPostgres(tx) {
		return nil
	}
	// SET LOCAL does not accept bind parameters.
	return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.LockTimeout.Milliseconds())).Error
}

func (s *Store) classify(tx *gorm.DB, err error) error {
	if database.IsLockNotAvailable(err) {
		return ErrLockTimeout
	}
	if ctx := tx.Statement.Context; ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrLockTimeout
	}
	return apperr.Persistence(err)
}
