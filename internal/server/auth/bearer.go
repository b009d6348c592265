package auth

import (
	"strings"

	"github.com/belikesnab/peach/internal/common"
)

// ParseBearer extracts the token from an authorization value of the form
// "Bearer <token>". The scheme is matched case-insensitively.
func ParseBearer(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
