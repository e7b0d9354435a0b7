package certificates

import "hst-backend/internal/pkg/apperr"

var (
	ErrDonationNotFound     = apperr.NotFound("Donation not found")
	ErrCertificateNotFound  = apperr.NotFound("Certificate not found")
	ErrDonationNotCompleted = apperr.Validation("Donation must be COMPLETED before a certificate can be issued")
	ErrInvalidOrientation   = apperr.Validation("Orientation must be portrait or landscape")
	ErrVoidReasonRequired   = apperr.Validation("A reason is required to void a certificate")

	ErrAlreadyIssued  = apperr.New(apperr.KindAlreadyIssued, "A certificate has already been issued for this donation")
	ErrAlreadyVoided  = apperr.New(apperr.KindAlreadyVoided, "Certificate is already voided")
	ErrRenderFailure  = apperr.New(apperr.KindRenderFailure, "Certificate rendering failed, please retry")
	ErrArtifactFailed = apperr.New(apperr.KindRenderFailure, "Certificate document could not be stored, please retry")
)
