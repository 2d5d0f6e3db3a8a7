package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCountryCode(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        string
		wantErr     bool
		errContains string
	}{
		{"valid uppercase", "CO", "CO", false, ""},
		{"lowercase normalized", "co", "CO", false, ""},
		{"whitespace trimmed", " us ", "US", false, ""},
		{"empty", "", "", true, "cannot be empty"},
		{"too long", "COL", "", true, "exactly 2 letters"},
		{"unknown code", "ZZ", "", true, "unsupported country code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := NewCountryCode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, code.String())
		})
	}
}

func TestCountryCodeName(t *testing.T) {
	assert.Equal(t, "Colombia", MustNewCountryCode("CO").Name())
	assert.Equal(t, "United States", MustNewCountryCode("US").Name())
}

func TestCountryCodeIsDomestic(t *testing.T) {
	assert.True(t, MustNewCountryCode("co").IsDomestic())
	assert.False(t, MustNewCountryCode("US").IsDomestic())
}
