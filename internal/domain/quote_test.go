package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsQuoteID(t *testing.T) {
	tests := []struct {
		id       string
		expected bool
	}{
		{NewQuoteID(), true},
		{"4f0c8f4e-5b7e-4d8e-9a52-3c0d6f3b1a11", true},
		{"", false},
		{"not-a-uuid", false},
		{"12345", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsQuoteID(tt.id))
		})
	}
}

func TestTimestamp(t *testing.T) {
	in := time.Date(2024, 5, 1, 12, 30, 0, 123_456_789, time.FixedZone("X", 3600))

	got := Timestamp(in)

	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 123_000_000, got.Nanosecond())
	assert.True(t, in.Truncate(time.Millisecond).Equal(got))
}

func TestPage_HasNext(t *testing.T) {
	assert.False(t, (&Page{Number: 1}).HasNext())
	assert.True(t, (&Page{Number: 1, NextToken: "3000000000000002"}).HasNext())
}
