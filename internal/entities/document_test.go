package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 24)
	assert.True(t, IsValidID(id))
	assert.NotEqual(t, id, NewID())
}

func TestIsValidID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"object id", "507f1f77bcf86cd799439011", true},
		{"too short", "507f1f77bcf86cd79943901", false},
		{"not hex", "zzzf1f77bcf86cd799439011", false},
		{"word", "invalid-id", false},
		{"empty", "", false},
		{"twelve bytes", "abcdefghijkl", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidID(tt.id))
		})
	}
}

func TestLoan_Outstanding(t *testing.T) {
	now := time.Now()

	assert.True(t, (&Loan{Status: LoanActive}).Outstanding())
	assert.True(t, (&Loan{Status: LoanOverdue}).Outstanding())
	assert.False(t, (&Loan{Status: LoanReturned, ReturnDate: &now}).Outstanding())
	assert.False(t, (&Loan{Status: LoanActive, ReturnDate: &now}).Outstanding())
}
