package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPII(t *testing.T) {
	tests := []struct {
		name   string
		column string
		values []string
		want   PIIType
	}{
		{"email", "v", []string{"user@example.com", "john.doe@company.org", "test@test.co.uk"}, PIIEmail},
		{"phone", "v", []string{"(123) 456-7890", "123-456-7890", "123.456.7890", "+1-123-456-7890"}, PIIPhone},
		{"ssn", "v", []string{"123-45-6789", "987-65-4321", "111-22-3333"}, PIISSN},
		{"credit card", "v", []string{"4532-1234-5678-9010", "5425 2334 3010 9903", "3782 822463 10005"}, PIICreditCard},
		{"ipv4", "v", []string{"192.168.1.1", "10.0.0.1", "172.16.0.100", "8.8.8.8"}, PIIIPAddress},
		{"birth date", "v", []string{"1990-05-15", "2000-12-01", "1985/03/22", "2010-07-04"}, PIIDateOfBirth},
		{"us postal with hint", "zip_code", []string{"90210", "10001", "94102-1234", "30301"}, PIIPostalCode},
		{"ca postal with hint", "postal_code", []string{"M5V 2T6", "K1A 0B1", "V6B2W2", "H2X 1L4"}, PIIPostalCode},
		{"name hint fallback", "email_address", []string{"random text", "some data"}, PIIEmail},
		{"plain text", "notes", []string{"normal text", "some data", "123"}, PIINone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectPII(tt.values, tt.column, 0.3)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want != PIINone, ok)
		})
	}
}

func TestPostalCodesNeedColumnHint(t *testing.T) {
	got, ok := DetectPII([]string{"90210", "10001", "30301"}, "amount", 0.3)
	assert.False(t, ok)
	assert.Equal(t, PIINone, got)
}

func TestDetectPIIThreshold(t *testing.T) {
	values := make([]string, 0, 10)
	values = append(values, "a@example.com", "b@example.com")
	for len(values) < 10 {
		values = append(values, "plain")
	}
	_, ok := DetectPII(values, "v", 0.3)
	assert.False(t, ok, "2 of 10 is below a threshold of 3")

	values[2] = "c@example.com"
	got, ok := DetectPII(values, "v", 0.3)
	assert.True(t, ok)
	assert.Equal(t, PIIEmail, got)

	_, ok = DetectPII(nil, "email", 0.3)
	assert.False(t, ok)
}

func TestNameHint(t *testing.T) {
	tests := map[string]PIIType{
		"email":                  PIIEmail,
		"user_email":             PIIEmail,
		"phone_number":           PIIPhone,
		"mobile":                 PIIPhone,
		"ssn":                    PIISSN,
		"social_security_number": PIISSN,
		"street_address":         PIIPostalCode,
		"zip_code":               PIIPostalCode,
		"dob":                    PIIDateOfBirth,
		"date_of_birth":          PIIDateOfBirth,
		"ip_address":             PIIIPAddress,
		"client_ip":              PIIIPAddress,
		"ip":                     PIIIPAddress,
		"filename":               PIINone,
		"amount":                 PIINone,
		"shipping_cost":          PIINone,
	}
	for name, want := range tests {
		assert.Equal(t, want, NameHint(name), name)
	}
}

func TestPIIIssue(t *testing.T) {
	is := PIIIssue("card", PIICreditCard)
	assert.Equal(t, "card_pii_credit_card", is.ID)
	assert.Equal(t, SeverityError, is.Severity)
	assert.Equal(t, SeverityInfo, PIIIssue("zip", PIIPostalCode).Severity)
	assert.Equal(t, SeverityWarning, PIIIssue("mail", PIIEmail).Severity)
}
