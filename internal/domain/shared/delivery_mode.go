package shared

import "strings"

// DeliveryMode is the Incoterm-style responsibility split for import charges
type DeliveryMode string

const (
	// DeliveryModeDDP is Delivered Duty Paid: the seller prepays duty and tax.
	DeliveryModeDDP DeliveryMode = "DDP"
	// DeliveryModeDAP is Delivered At Place: the buyer may owe duty and tax on arrival.
	DeliveryModeDAP DeliveryMode = "DAP"
)

// AllDeliveryModes returns the candidate modes in evaluation order
func AllDeliveryModes() []DeliveryMode {
	return []DeliveryMode{DeliveryModeDDP, DeliveryModeDAP}
}

// IsValid checks if the delivery mode is valid
func (m DeliveryMode) IsValid() bool {
	return m == DeliveryModeDDP || m == DeliveryModeDAP
}

// Opposite returns the other delivery mode
func (m DeliveryMode) Opposite() DeliveryMode {
	if m == DeliveryModeDDP {
		return DeliveryModeDAP
	}
	return DeliveryModeDDP
}

// String returns the string representation
func (m DeliveryMode) String() string {
	return string(m)
}

// ParseDeliveryMode parses a case-insensitive delivery mode
func ParseDeliveryMode(s string) (DeliveryMode, bool) {
	m := DeliveryMode(strings.ToUpper(strings.TrimSpace(s)))
	return m, m.IsValid()
}

// euMemberStates lists the EU-27 ISO 3166-1 alpha-2 codes
var euMemberStates = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "HR": {}, "CY": {}, "CZ": {}, "DK": {},
	"EE": {}, "FI": {}, "FR": {}, "DE": {}, "GR": {}, "HU": {}, "IE": {},
	"IT": {}, "LV": {}, "LT": {}, "LU": {}, "MT": {}, "NL": {}, "PL": {},
	"PT": {}, "RO": {}, "SK": {}, "SI": {}, "ES": {}, "SE": {},
}

// IsEUMember reports whether the country code belongs to an EU member state
func IsEUMember(countryCode string) bool {
	_, ok := euMemberStates[strings.ToUpper(countryCode)]
	return ok
}

// EUMemberStates returns the EU member state codes
func EUMemberStates() []string {
	codes := make([]string, 0, len(euMemberStates))
	for c := range euMemberStates {
		codes = append(codes, c)
	}
	return codes
}
