package database

import (
	"errors"
	"strings"

	"hst-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the services care about.
const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
)

// Open opens a GORM DB from DSN (Postgres or a pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers (e.g. PgBouncer, Supabase, Render).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
}

// Models lists every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&domain.Donor{},
		&domain.Donation{},
		&domain.CertificateCounter{},
		&domain.Certificate{},
		&domain.OrgSettings{},
		&domain.AuditLog{},
	}
}

// AutoMigrate creates or updates the tables, including the unique index on
// Certificates.donation_id that backs the one-certificate-per-donation rule.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// IsPostgres reports whether db talks to Postgres (as opposed to the SQLite
// databases used in tests).
func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// UniqueViolationOn reports whether err is a unique violation on column.
func UniqueViolationOn(err error, column string) bool {
	if !IsUniqueViolation(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasSuffix(strings.ToLower(pgErr.ConstraintName), "_"+column) ||
			strings.Contains(pgErr.Detail, "("+column+")")
	}
	return strings.Contains(err.Error(), "."+column)
}

// IsLockNotAvailable reports whether err is Postgres giving up on a row lock
// after lock_timeout.
func IsLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable
}
