package checkout

import (
	"fmt"
	"regexp"
	"strings"
)

// PaymentMethod enumerates the accepted payment instruments.
type PaymentMethod string

const (
	PaymentCredit PaymentMethod = "credit"
	PaymentDebit  PaymentMethod = "debit"
	PaymentPaypal PaymentMethod = "paypal"
)

// Form is the shipping and payment input submitted at checkout.
type Form struct {
	Email   string        `json:"email"`
	Name    string        `json:"name"`
	Street  string        `json:"street"`
	City    string        `json:"city"`
	State   string        `json:"state"`
	ZipCode string        `json:"zipCode"`
	Country string        `json:"country"`
	Payment PaymentMethod `json:"paymentMethod"`

	// Card fields are required unless Payment is paypal. CardNumber may
	// arrive grouped for display; validation strips separators first.
	CardNumber string `json:"cardNumber,omitempty"`
	ExpiryDate string `json:"expiryDate,omitempty"`
	CVV        string `json:"cvv,omitempty"`
}

// FieldError describes a single invalid form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates per-field errors so the UI can render them
// inline.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "invalid checkout form: " + strings.Join(msgs, "; ")
}

var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	cvvRe    = regexp.MustCompile(`^\d{3,4}$`)
	expiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])\s*/\s*\d{2}(\d{2})?$`)
)

// Validate checks the form against the checkout schema. It returns a
// *ValidationError listing every failing field, or nil.
func (f Form) Validate() error {
	var fields []FieldError
	add := func(field, msg string) {
		fields = append(fields, FieldError{Field: field, Message: msg})
	}

	if !emailRe.MatchString(f.Email) {
		add("email", "invalid email address")
	}
	if len(f.Name) < 2 {
		add("name", "name must be at least 2 characters")
	}
	if len(f.Street) < 5 {
		add("street", "street address is required")
	}
	if len(f.City) < 2 {
		add("city", "city is required")
	}
	if len(f.State) < 2 {
		add("state", "state is required")
	}
	if len(f.ZipCode) < 5 {
		add("zipCode", "valid ZIP code is required")
	}
	if len(f.Country) < 2 {
		add("country", "country is required")
	}

	switch f.Payment {
	case PaymentCredit, PaymentDebit:
		if !ValidCardNumber(f.CardNumber) {
			add("cardNumber", "invalid card number")
		}
		if !expiryRe.MatchString(f.ExpiryDate) {
			add("expiryDate", "expiry date must be MM/YY")
		}
		if !cvvRe.MatchString(f.CVV) {
			add("cvv", "CVV must be 3 or 4 digits")
		}
	case PaymentPaypal:
		// No card details needed.
	default:
		add("paymentMethod", fmt.Sprintf("unsupported payment method %q", f.Payment))
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// cardDigits strips spaces and dashes, returning the raw digit string, or ""
// when any other character is present.
func cardDigits(cardNumber string) string {
	var b strings.Builder
	for _, r := range cardNumber {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
		default:
			return ""
		}
	}
	return b.String()
}

// ValidCardNumber reports whether the card number (separators allowed) is
// 13 to 19 digits and passes the Luhn checksum.
func ValidCardNumber(cardNumber string) bool {
	digits := cardDigits(cardNumber)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// FormatCardNumber groups the digits in blocks of four for display. This is
// presentation only; validation and any storage always use the raw digits.
func FormatCardNumber(cardNumber string) string {
	digits := cardDigits(cardNumber)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MaskCardNumber hides all but the first and last four digits. Inputs too
// short to mask are returned unchanged.
func MaskCardNumber(cardNumber string) string {
	digits := cardDigits(cardNumber)
	if len(digits) < 8 {
		return cardNumber
	}
	return digits[:4] + " " + strings.Repeat("*", len(digits)-8) + " " + digits[len(digits)-4:]
}
