package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddress(t *testing.T) {
	t.Run("normalizes fields", func(t *testing.T) {
		addr, err := NewAddress(" 1 Main St ", "Los Angeles", "90001", "us", WithState("ca"), WithRecipient("Jo", "555"))
		require.NoError(t, err)
		assert.Equal(t, "US", addr.CountryCode)
		assert.Equal(t, "CA", addr.State)
		assert.Equal(t, "1 Main St", addr.Line1)
		assert.Equal(t, "Jo", addr.Name)
		assert.Equal(t, "1 Main St, Los Angeles, CA, 90001, US", addr.OneLine())
	})

	t.Run("postal code optional where unused", func(t *testing.T) {
		_, err := NewAddress("Nathan Rd", "Kowloon", "", "HK")
		assert.NoError(t, err)
	})
}

func TestAddress_Validate(t *testing.T) {
	tests := []struct {
		name string
		addr Address
	}{
		{"bad country", Address{City: "Berlin", PostalCode: "10115", CountryCode: "DEU"}},
		{"lower country", Address{City: "Berlin", PostalCode: "10115", CountryCode: "de"}},
		{"missing city", Address{PostalCode: "10115", CountryCode: "DE"}},
		{"missing postal code", Address{City: "Berlin", CountryCode: "DE"}},
		{"postal code too long", Address{City: "Berlin", PostalCode: "1234567890123", CountryCode: "DE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.addr.Validate(), ErrInvalidAddress)
		})
	}
}
