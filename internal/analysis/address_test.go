package analysis

import (
	"testing"

	"token-risk-monitor/internal/domain"
)

func TestValidAddress(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"So11111111111111111111111111111111111111112", true},
		{"11111111111111111111111111111111", true},
		{"", false},
		{"abc", false},
		{"0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", false},
		{"So11111111111111111111111111111111111111112So1111", false},
	}
	for _, tt := range tests {
		if got := ValidAddress(tt.in); got != tt.want {
			t.Errorf("ValidAddress(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTokenAddress(t *testing.T) {
	wsol := "So11111111111111111111111111111111111111112"

	addr, ok := TokenAddress(&domain.TokenAttributes{TokenAddress: &wsol})
	if addr != wsol || !ok {
		t.Errorf("token_address: got %q %v", addr, ok)
	}

	fallback := "not-base58!"
	addr, ok = TokenAddress(&domain.TokenAttributes{Address: &fallback})
	if addr != fallback || ok {
		t.Errorf("address fallback: got %q %v", addr, ok)
	}

	if addr, ok := TokenAddress(&domain.TokenAttributes{}); addr != "" || ok {
		t.Errorf("empty: got %q %v", addr, ok)
	}
}
