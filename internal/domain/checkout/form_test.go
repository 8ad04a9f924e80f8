package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() Form {
	return Form{
		Email:      "jane@example.com",
		Name:       "Jane Doe",
		Street:     "1 Main Street",
		City:       "Springfield",
		State:      "IL",
		ZipCode:    "62701",
		Country:    "US",
		Payment:    PaymentCredit,
		CardNumber: "4532 0151 1283 0366",
		ExpiryDate: "12/27",
		CVV:        "123",
	}
}

func fieldNames(err error) []string {
	verr, ok := err.(*ValidationError)
	if !ok {
		return nil
	}
	names := make([]string, len(verr.Fields))
	for i, f := range verr.Fields {
		names[i] = f.Field
	}
	return names
}

func TestFormValidate_OK(t *testing.T) {
	assert.NoError(t, validForm().Validate())
}

func TestFormValidate_PaypalSkipsCardFields(t *testing.T) {
	f := validForm()
	f.Payment = PaymentPaypal
	f.CardNumber = ""
	f.ExpiryDate = ""
	f.CVV = ""
	assert.NoError(t, f.Validate())
}

func TestFormValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Form)
		field  string
	}{
		{"bad email", func(f *Form) { f.Email = "not-an-email" }, "email"},
		{"short name", func(f *Form) { f.Name = "J" }, "name"},
		{"short street", func(f *Form) { f.Street = "1 St" }, "street"},
		{"missing city", func(f *Form) { f.City = "" }, "city"},
		{"missing state", func(f *Form) { f.State = "I" }, "state"},
		{"short zip", func(f *Form) { f.ZipCode = "123" }, "zipCode"},
		{"missing country", func(f *Form) { f.Country = "" }, "country"},
		{"unknown payment method", func(f *Form) { f.Payment = "bitcoin" }, "paymentMethod"},
		{"card required for credit", func(f *Form) { f.CardNumber = "" }, "cardNumber"},
		{"bad expiry", func(f *Form) { f.ExpiryDate = "13/27" }, "expiryDate"},
		{"bad cvv", func(f *Form) { f.CVV = "12" }, "cvv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			err := f.Validate()
			require.Error(t, err)
			assert.Contains(t, fieldNames(err), tt.field)
		})
	}
}

func TestFormValidate_CollectsAllFields(t *testing.T) {
	err := Form{Payment: PaymentPaypal}.Validate()
	require.Error(t, err)
	assert.ElementsMatch(t,
		[]string{"email", "name", "street", "city", "state", "zipCode", "country"},
		fieldNames(err))
}

func TestValidCardNumber(t *testing.T) {
	// Known Luhn pair: flipping the last digit breaks the checksum.
	assert.True(t, ValidCardNumber("4532 0151 1283 0366"))
	assert.False(t, ValidCardNumber("4532 0151 1283 0367"))

	assert.True(t, ValidCardNumber("4532015112830366"), "separators are optional")
	assert.True(t, ValidCardNumber("4532-0151-1283-0366"))

	assert.False(t, ValidCardNumber(""), "empty")
	assert.False(t, ValidCardNumber("4111"), "too short")
	assert.False(t, ValidCardNumber("4532 0151 1283 036a"), "letters rejected")
}

func TestFormatCardNumber(t *testing.T) {
	assert.Equal(t, "4532 0151 1283 0366", FormatCardNumber("4532015112830366"))
	assert.Equal(t, "4532 0151 1283 0366", FormatCardNumber("4532 0151 1283 0366"))
	assert.Equal(t, "4532 015", FormatCardNumber("4532015"))
}

func TestMaskCardNumber(t *testing.T) {
	assert.Equal(t, "4532 ******** 0366", MaskCardNumber("4532 0151 1283 0366"))
	assert.Equal(t, "1234567", MaskCardNumber("1234567"), "too short to mask")
}
