package quality

import (
	"regexp"
	"strings"
)

// PIIType names a kind of personal data.
type PIIType string

const (
	PIINone        PIIType = ""
	PIIEmail       PIIType = "email"
	PIIPhone       PIIType = "phone number"
	PIISSN         PIIType = "SSN"
	PIICreditCard  PIIType = "credit card"
	PIIIPAddress   PIIType = "IP address"
	PIIDateOfBirth PIIType = "date of birth"
	PIIPostalCode  PIIType = "postal code"
)

// Severity of an issue raised for the type.
func (p PIIType) Severity() Severity {
	switch p {
	case PIISSN, PIICreditCard:
		return SeverityError
	case PIIPostalCode:
		return SeverityInfo
	}
	return SeverityWarning
}

var (
	emailPattern      = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	phonePattern      = regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	ssnPattern        = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	cardPattern       = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4,7}\b`)
	ipv4Pattern       = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)
	birthDatePattern  = regexp.MustCompile(`\b(?:19|20)\d{2}[-/](?:0[1-9]|1[0-2])[-/](?:0[1-9]|[12]\d|3[01])\b`)
	usPostalPattern   = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	caPostalPattern   = regexp.MustCompile(`(?i)\b[A-Z]\d[A-Z]\s?\d[A-Z]\d\b`)
	ipColumnFragments = []string{"ip_address", "ipaddress", "ip_addr", "client_ip", "user_ip", "server_ip", "source_ip", "dest_ip", "remote_ip"}
)

// NameHint guesses a PII type from a column name alone.
func NameHint(column string) PIIType {
	name := strings.ToLower(column)
	has := func(frags ...string) bool {
		for _, f := range frags {
			if strings.Contains(name, f) {
				return true
			}
		}
		return false
	}
	switch {
	case has("email", "e_mail", "e-mail"):
		return PIIEmail
	case has("phone", "mobile", "cell", "tel", "fax"):
		return PIIPhone
	case has("ssn", "social_security", "socialsecurity", "social-security"):
		return PIISSN
	// ip_address contains "address", so it goes before the postal check.
	case has(ipColumnFragments...) || name == "ip":
		return PIIIPAddress
	case has("address", "street", "zip", "postal", "postcode"):
		return PIIPostalCode
	case has("dob", "birth"):
		return PIIDateOfBirth
	}
	return PIINone
}

// DetectPII checks sample values against the known patterns. A pattern
// matches when at least max(1, floor(len(sample)*threshold)) values match it.
// Patterns are tried from the most sensitive down. Postal codes need a
// matching column name, a birth date name halves its threshold, and a name
// hint alone is the fallback.
func DetectPII(sample []string, column string, threshold float64) (PIIType, bool) {
	if len(sample) == 0 {
		return PIINone, false
	}

	var email, phone, ssn, card, ip, dob, postal int
	for _, v := range sample {
		v = strings.TrimSpace(v)
		if emailPattern.MatchString(v) {
			email++
		}
		if phonePattern.MatchString(v) {
			phone++
		}
		if len(v) == 11 && ssnPattern.MatchString(v) {
			ssn++
		}
		if len(v) > 13 && cardPattern.MatchString(v) {
			card++
		}
		if ipv4Pattern.MatchString(v) {
			ip++
		}
		if birthDatePattern.MatchString(v) {
			dob++
		}
		if usPostalPattern.MatchString(v) || caPostalPattern.MatchString(v) {
			postal++
		}
	}

	need := int(float64(len(sample)) * threshold)
	if need < 1 {
		need = 1
	}
	hint := NameHint(column)

	switch {
	case ssn >= need:
		return PIISSN, true
	case card >= need:
		return PIICreditCard, true
	case email >= need:
		return PIIEmail, true
	case phone >= need:
		return PIIPhone, true
	case ip >= need:
		return PIIIPAddress, true
	}
	dobNeed := need
	if hint == PIIDateOfBirth {
		dobNeed = max(need/2, 1)
	}
	if dob >= dobNeed {
		return PIIDateOfBirth, true
	}
	if postal >= need && hint == PIIPostalCode {
		return PIIPostalCode, true
	}
	return hint, hint != PIINone
}

// PIIIssue describes a detected PII type.
func PIIIssue(column string, p PIIType) Issue {
	return Issue{
		ID:       column + "_pii_" + strings.ReplaceAll(string(p), " ", "_"),
		Message:  "Potential PII detected: " + string(p),
		Severity: p.Severity(),
	}
}
