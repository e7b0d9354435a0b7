package database

import (
	"errors"
	"fmt"
	"testing"

	"hst-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAutoMigrate_CertificateDonationIsUnique(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	assert.False(t, IsPostgres(db))

	donationID := uuid.New()
	require.NoError(t, db.Create(&domain.Certificate{
		DonationID: donationID, CertificateNo: "HST-80G-2025-0001", Year: 2025, Seq: 1,
		Status: domain.CertificateStatusIssued, ArtifactRef: "a",
	}).Error)

	err = db.Create(&domain.Certificate{
		DonationID: donationID, CertificateNo: "HST-80G-2025-0002", Year: 2025, Seq: 2,
		Status: domain.CertificateStatusIssued, ArtifactRef: "b",
	}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.True(t, UniqueViolationOn(err, "donation_id"))
	assert.False(t, UniqueViolationOn(err, "certificate_no"))
}

func TestUniqueViolationOn_Postgres(t *testing.T) {
	byIndex := &pgconn.PgError{Code: "23505", ConstraintName: "idx_Certificates_donation_id"}
	assert.True(t, UniqueViolationOn(fmt.Errorf("insert: %w", byIndex), "donation_id"))
	assert.False(t, UniqueViolationOn(byIndex, "certificate_no"))

	byDetail := &pgconn.PgError{Code: "23505", Detail: "Key (donation_id)=(1b4e) already exists."}
	assert.True(t, UniqueViolationOn(byDetail, "donation_id"))

	assert.False(t, UniqueViolationOn(&pgconn.PgError{Code: "55P03", ConstraintName: "idx_Certificates_donation_id"}, "donation_id"))
	assert.False(t, UniqueViolationOn(nil, "donation_id"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
}

func TestIsLockNotAvailable(t *testing.T) {
	assert.True(t, IsLockNotAvailable(&pgconn.PgError{Code: "55P03"}))
	assert.False(t, IsLockNotAvailable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsLockNotAvailable(errors.New("timeout")))
}
