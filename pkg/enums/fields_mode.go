package enums

import "fmt"

// FieldsMode selects which contact fields the checkout form collects.
type FieldsMode string

const (
	FieldsModeNameEmail    FieldsMode = "name_email"
	FieldsModeNameWhatsapp FieldsMode = "name_whatsapp"
	FieldsModeFull         FieldsMode = "full"
)

var validFieldsModes = []FieldsMode{
	FieldsModeNameEmail,
	FieldsModeNameWhatsapp,
	FieldsModeFull,
}

// IsValid reports whether the value is a known FieldsMode.
func (m FieldsMode) IsValid() bool {
	for _, candidate := range validFieldsModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// HasDeliveryStep reports whether the flow includes the delivery info step.
func (m FieldsMode) HasDeliveryStep() bool {
	return m == FieldsModeFull
}

// ParseFieldsMode converts raw input into a FieldsMode.
func ParseFieldsMode(value string) (FieldsMode, error) {
	for _, candidate := range validFieldsModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout fields mode %q", value)
}
