package valueobject

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAddress is returned when an address fails structural validation
var ErrInvalidAddress = errors.New("address: invalid")

// countriesWithoutPostalCodes do not use postal codes for delivery
var countriesWithoutPostalCodes = map[string]struct{}{
	"AE": {}, "HK": {}, "IE": {}, "QA": {}, "BO": {}, "JM": {},
}

// Address is an international postal address used for shipping
type Address struct {
	Name        string `json:"name,omitempty"`
	Company     string `json:"company,omitempty"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	CountryCode string `json:"countryCode"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithState sets the state or region
func WithState(state string) AddressOption {
	return func(a *Address) {
		a.State = strings.ToUpper(strings.TrimSpace(state))
	}
}

// WithRecipient sets the contact name and phone
func WithRecipient(name, phone string) AddressOption {
	return func(a *Address) {
		a.Name = strings.TrimSpace(name)
		a.Phone = strings.TrimSpace(phone)
	}
}

// NewAddress creates a normalized address and validates it
func NewAddress(line1, city, postalCode, countryCode string, opts ...AddressOption) (Address, error) {
	addr := Address{
		Line1:       strings.TrimSpace(line1),
		City:        strings.TrimSpace(city),
		PostalCode:  strings.TrimSpace(postalCode),
		CountryCode: strings.ToUpper(strings.TrimSpace(countryCode)),
	}
	for _, opt := range opts {
		opt(&addr)
	}
	if err := addr.Validate(); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// Validate checks the structural requirements of a deliverable address
func (a Address) Validate() error {
	if !IsCountryCode(a.CountryCode) {
		return fmt.Errorf("%w: country code %q must be ISO 3166-1 alpha-2", ErrInvalidAddress, a.CountryCode)
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("%w: city is required", ErrInvalidAddress)
	}
	if RequiresPostalCode(a.CountryCode) && strings.TrimSpace(a.PostalCode) == "" {
		return fmt.Errorf("%w: postal code is required for %s", ErrInvalidAddress, a.CountryCode)
	}
	if len(a.PostalCode) > 12 {
		return fmt.Errorf("%w: postal code too long", ErrInvalidAddress)
	}
	return nil
}

// OneLine returns the address on a single line
func (a Address) OneLine() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.CountryCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// IsCountryCode checks the ISO 3166-1 alpha-2 shape (two upper-case letters)
func IsCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// RequiresPostalCode reports whether the country uses postal codes
func RequiresPostalCode(countryCode string) bool {
	_, ok := countriesWithoutPostalCodes[strings.ToUpper(countryCode)]
	return !ok
}
