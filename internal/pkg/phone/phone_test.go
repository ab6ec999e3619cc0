package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigits(t *testing.T) {
	assert.Equal(t, "996555123456", Digits("+996 (555) 123-456"))
	assert.Equal(t, "", Digits("abc"))
	assert.Equal(t, "123", Digits(" 1 2 3 "))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "996555123456", "996555123456"},
		{"plus and formatting", "+996 (555) 123-456", "996555123456"},
		{"legacy trunk prefix 8", "89991234567", "79991234567"},
		{"international 00 prefix", "00996555123456", "996555123456"},
		{"local nine digits, mobile 5xx", "555123456", "996555123456"},
		{"local trunk prefix 0", "0555123456", "996555123456"},
		{"local trunk prefix with formatting", "0 (555) 12-34-56", "996555123456"},
		{"local nine digits, mobile 7xx", "700123456", "996700123456"},
		{"local nine digits, landline 312", "312123456", "312123456"},
		{"too short left alone", "12345", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("user@example.com"))
	assert.False(t, IsEmail("996555123456"))
	assert.False(t, IsEmail("@example.com"))
	assert.False(t, IsEmail("user@"))
}
