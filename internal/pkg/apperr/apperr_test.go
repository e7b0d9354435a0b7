package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:    http.StatusBadRequest,
		KindNotFound:      http.StatusNotFound,
		KindAlreadyIssued: http.StatusConflict,
		KindAlreadyVoided: http.StatusConflict,
		KindLockTimeout:   http.StatusServiceUnavailable,
		KindRenderFailure: http.StatusServiceUnavailable,
		KindPersistence:   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(kind, "x")), kind)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestIs_MatchesSentinelThroughWrapping(t *testing.T) {
	sentinel := New(KindAlreadyIssued, "Certificate already issued for this donation")
	err := fmt.Errorf("issue: %w", New(KindAlreadyIssued, "Certificate already issued for this donation"))
	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, New(KindAlreadyVoided, "")))
	assert.True(t, errors.Is(err, &Error{Kind: KindAlreadyIssued}))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(KindLockTimeout, "busy")))
	assert.True(t, Retryable(Wrap(KindRenderFailure, "renderer down", errors.New("eof"))))
	assert.False(t, Retryable(Validation("bad")))
	assert.False(t, Retryable(errors.New("plain")))
}

func TestPublicMessage_HidesPersistenceCause(t *testing.T) {
	err := Persistence(errors.New("pq: connection reset"))
	assert.Equal(t, "Internal Server Error", PublicMessage(err))
	assert.Equal(t, "Amount is required", PublicMessage(Validation("Amount is required")))
	assert.Equal(t, "Internal Server Error", PublicMessage(errors.New("boom")))
}
