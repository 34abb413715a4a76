package checkout

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
)

const minPhoneDigits = 10

var (
	validate      = validator.New()
	mobileAgentRE = regexp.MustCompile(`(?i)android|iphone|ipad|ipod|mobile|webos|blackberry|opera mini|iemobile`)
)

// Form is what the buyer types on the data entry and delivery steps.
type Form struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	CPF      string `json:"cpf"`
	Whatsapp string `json:"whatsapp"`
}

func (f Form) trimmed() Form {
	return Form{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Phone:    strings.TrimSpace(f.Phone),
		CPF:      strings.TrimSpace(f.CPF),
		Whatsapp: strings.TrimSpace(f.Whatsapp),
	}
}

// validateDataEntry checks only the fields the buyer filled in for the active mode.
func validateDataEntry(mode enums.FieldsMode, f Form) error {
	details := map[string]string{}
	if f.Email != "" && mode != enums.FieldsModeNameWhatsapp {
		if err := validate.Var(f.Email, "email"); err != nil {
			details["email"] = "must be a valid email"
		}
	}
	if f.Phone != "" && mode != enums.FieldsModeNameEmail {
		if len(digits(f.Phone)) < minPhoneDigits {
			details["phone"] = "must have at least 10 digits"
		}
	}
	if f.CPF != "" && mode == enums.FieldsModeFull {
		if !ValidCPF(f.CPF) {
			details["cpf"] = "is invalid"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

func validateWhatsapp(value string) error {
	if value == "" {
		return nil
	}
	if len(digits(value)) < minPhoneDigits {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"whatsapp": "must have at least 10 digits"})
	}
	return nil
}

// ValidCPF checks the two CPF verification digits.
func ValidCPF(raw string) bool {
	d := digits(raw)
	if len(d) != 11 {
		return false
	}
	if strings.Count(d, d[:1]) == 11 {
		return false
	}
	for _, n := range []int{9, 10} {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(d[i]-'0') * (n + 1 - i)
		}
		check := sum * 10 % 11
		if check == 10 {
			check = 0
		}
		if check != int(d[n]-'0') {
			return false
		}
	}
	return true
}

func isMobileUserAgent(ua string) bool {
	return mobileAgentRE.MatchString(ua)
}

func digits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
