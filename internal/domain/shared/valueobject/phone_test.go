package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhone(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        string
		wantErr     bool
		errContains string
	}{
		{
			name:  "mobile with country code digits",
			input: "573001234567",
			want:  "+573001234567",
		},
		{
			name:  "mobile with plus prefix",
			input: "+57 300 123 4567",
			want:  "+573001234567",
		},
		{
			name:  "local mobile gets country code",
			input: "3001234567",
			want:  "+573001234567",
		},
		{
			name:  "landline gets country code",
			input: "6012345",
			want:  "+576012345",
		},
		{
			name:  "formatted landline",
			input: "(601) 234-5678",
			want:  "+576012345678",
		},
		{
			name:  "foreign number keeps its country code",
			input: "+1 415 555 01234",
			want:  "+141555501234",
		},
		{
			name:        "too short",
			input:       "123456",
			wantErr:     true,
			errContains: "between 7 and 15",
		},
		{
			name:        "too long",
			input:       "5730012345671234",
			wantErr:     true,
			errContains: "between 7 and 15",
		},
		{
			name:        "no digits",
			input:       "call me",
			wantErr:     true,
			errContains: "between 7 and 15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone, err := NewPhone(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, phone.String())
		})
	}
}

func TestPhoneEquals(t *testing.T) {
	a := MustNewPhone("300 123 4567")
	b := MustNewPhone("+573001234567")
	c := MustNewPhone("3007654321")

	assert.True(t, a.Equals(b), "normalization should make these equal")
	assert.False(t, a.Equals(c))
}

func TestPhoneIsMobile(t *testing.T) {
	assert.True(t, MustNewPhone("3001234567").IsMobile())
	assert.False(t, MustNewPhone("6012345").IsMobile())
}

func TestPhoneDigits(t *testing.T) {
	phone := MustNewPhone("+57 (300) 123-4567")
	assert.Equal(t, "573001234567", phone.Digits())
}

func TestPhoneScan(t *testing.T) {
	var phone Phone
	require.NoError(t, phone.Scan("+573001234567"))
	assert.Equal(t, "+573001234567", phone.String())

	require.NoError(t, phone.Scan(nil))
	assert.True(t, phone.IsEmpty())
}
