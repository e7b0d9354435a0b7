package settings

import (
	"context"
	"testing"

	"hst-backend/internal/domain"
	"hst-backend/internal/pkg/apperr"
	"hst-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSettings(t *testing.T) *Service {
	return &Service{
		DB: testutil.OpenDB(t),
		Defaults: domain.OrgSettings{
			OrgName:           "Helping Hands Seva Trust",
			CertificatePrefix: "HST-80G",
			SignatoryName:     "R. Iyer",
		},
	}
}

func strPtr(s string) *string { return &s }

func TestSnapshot_DefaultsWithoutWriting(t *testing.T) {
	s := setupSettings(t)
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HST-80G", snap.CertificatePrefix)

	var n int64
	require.NoError(t, s.DB.Model(&domain.OrgSettings{}).Count(&n).Error)
	assert.EqualValues(t, 0, n)
}

func TestUpdate_PersistsAndSnapshotIsACopy(t *testing.T) {
	s := setupSettings(t)
	ctx := context.Background()

	before, err := s.Snapshot(ctx)
	require.NoError(t, err)

	updated, err := s.Update(ctx, UpdateInput{CertificatePrefix: strPtr(" hst-12a "), SignatoryTitle: strPtr("Trustee")}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "HST-12A", updated.CertificatePrefix)
	assert.Equal(t, "R. Iyer", updated.SignatoryName)

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "HST-12A", after.CertificatePrefix)
	assert.Equal(t, "Trustee", after.SignatoryTitle)
	assert.Equal(t, "HST-80G", before.CertificatePrefix)

	again, err := s.Update(ctx, UpdateInput{OrgName: strPtr("Helping Hands Trust")}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "HST-12A", again.CertificatePrefix)
	var n int64
	require.NoError(t, s.DB.Model(&domain.OrgSettings{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestUpdate_Validation(t *testing.T) {
	s := setupSettings(t)
	ctx := context.Background()
	for _, in := range []UpdateInput{
		{CertificatePrefix: strPtr("bad prefix!")},
		{OrgName: strPtr("  ")},
		{OrgPAN: strPtr("123")},
	} {
		_, err := s.Update(ctx, in, "admin")
		assert.True(t, apperr.HasKind(err, apperr.KindValidation), "%+v", in)
	}
}
