package cnpj

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"known valid", "11222333000181", true},
		{"valid with punctuation", "11.222.333/0001-81", true},
		{"all identical digits", "11111111111111", false},
		{"all zeros", "00000000000000", false},
		{"wrong second check digit", "11222333000180", false},
		{"wrong first check digit", "11222333000171", false},
		{"too short", "1122233300018", false},
		{"too long", "112223330001811", false},
		{"empty", "", false},
		{"letters only", "abcdefghijklmn", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.raw), "raw=%q", tt.raw)
		})
	}
}

func TestClean(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "11222333000181", Clean("11.222.333/0001-81"))
	assert.Equal(t, "", Clean("no digits here"))
}

func TestClean_Idempotent(t *testing.T) {
	t.Parallel()

	raw := "11.222.333/0001-81"
	once := Clean(raw)
	assert.Equal(t, once, Clean(once))
	assert.Equal(t, Valid(once), Valid(Clean(once)))
}
