package certificates

import (
	"fmt"
	"strings"

	"hst-backend/internal/domain"
)

// FormatNumber renders a certificate number: PREFIX-YYYY-NNNN. Sequences past
// 9999 simply widen.
func FormatNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%04d-%04d", prefix, year, seq)
}

// PreviewNumber is the placeholder printed on previews.
func PreviewNumber(prefix string, year int) string {
	return fmt.Sprintf("%s-%04d-PREVIEW", prefix, year)
}

func normalizeOrientation(o string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(o)) {
	case "", domain.OrientationPortrait:
		return domain.OrientationPortrait, nil
	case domain.OrientationLandscape:
		return domain.OrientationLandscape, nil
	}
	return "", ErrInvalidOrientation
}
