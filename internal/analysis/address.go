package analysis

import (
	"github.com/mr-tron/base58"

	"token-risk-monitor/internal/domain"
)

// publicKeyLength is the size of a Solana public key in bytes.
const publicKeyLength = 32

// ValidAddress reports whether s is a base58-encoded 32-byte public key.
func ValidAddress(s string) bool {
	if s == "" {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == publicKeyLength
}

// TokenAddress returns the snapshot's token address, preferring token_address
// over address, and whether it is a valid public key.
func TokenAddress(attrs *domain.TokenAttributes) (string, bool) {
	for _, candidate := range []*string{attrs.TokenAddress, attrs.Address} {
		if candidate != nil && *candidate != "" {
			return *candidate, ValidAddress(*candidate)
		}
	}
	return "", false
}
