//go:build integration

package certificates

import (
	"context"
	"testing"
	"time"

	"hst-backend/internal/domain"
	"hst-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

// Run with: go test -tags=integration ./internal/application/certificates/...
func TestIssue_PostgresWaitsForDonationLock(t *testing.T) {
	f := setupIssuerOn(testutil.OpenPostgres(t))
	id := f.donation(t, 2025, domain.DonationStatusCompleted)

	// A status change holding the donation row blocks issuance until it ends.
	holder := f.db.Begin()
	require.NoError(t, holder.Error)
	var d domain.Donation
	require.NoError(t, holder.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("donation_id = ?", id).First(&d).Error)
	require.NoError(t, holder.Model(&domain.Donation{}).Where("donation_id = ?", id).
		Update("status", domain.DonationStatusCancelled).Error)

	blocked, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	_, err := f.issuer.Issue(blocked, id, IssueOptions{})
	cancel()
	require.Error(t, err)
	assert.EqualValues(t, 0, f.certCount(t))

	require.NoError(t, holder.Commit().Error)

	// Issuance now sees the committed cancellation.
	_, err = f.issuer.Issue(context.Background(), id, IssueOptions{})
	assert.ErrorIs(t, err, ErrDonationNotCompleted)
	assert.EqualValues(t, 0, f.certCount(t))
}

func TestIssue_PostgresConcurrentSameDonationIssuesOnce(t *testing.T) {
	f := setupIssuerOn(testutil.OpenPostgres(t))
	id := f.donation(t, 2025, domain.DonationStatusCompleted)

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := f.issuer.Issue(context.Background(), id, IssueOptions{})
			errs <- err
		}()
	}
	issued := 0
	for i := 0; i < workers; i++ {
		if err := <-errs; err == nil {
			issued++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyIssued)
		}
	}
	assert.Equal(t, 1, issued)
	assert.EqualValues(t, 1, f.certCount(t))
	cur, err := f.issuer.Counters.Current(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, cur)
}
