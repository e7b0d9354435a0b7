package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "jane doe", NormalizeName("  Jane   DOE "))
	assert.Equal(t, NormalizeName("jane doe"), NormalizeName("JANE\tDoe"))
	assert.NotEqual(t, NormalizeName("Jane Doe"), NormalizeName("Jane D. Doe"))
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("555-1"))
	assert.True(t, IsValidPhone("+91 98765 43210"))
	assert.False(t, IsValidPhone("call me"))
	assert.False(t, IsValidPhone(""))
}

func TestIsValidPAN(t *testing.T) {
	assert.True(t, IsValidPAN("ABCDE1234F"))
	assert.False(t, IsValidPAN("abcde1234f"))
	assert.False(t, IsValidPAN("ABCD1234F"))
}

func TestIsValidCertificatePrefix(t *testing.T) {
	assert.True(t, IsValidCertificatePrefix("HST-80G"))
	assert.False(t, IsValidCertificatePrefix("-HST"))
	assert.False(t, IsValidCertificatePrefix("hst"))
	assert.False(t, IsValidCertificatePrefix(""))
}

func TestOptionalString(t *testing.T) {
	assert.Nil(t, OptionalString("   "))
	s := OptionalString("x")
	if assert.NotNil(t, s) {
		assert.Equal(t, "x", *s)
	}
}
