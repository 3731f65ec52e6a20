package usecase

import (
	"fmt"
	"regexp"
	"strings"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigits    = regexp.MustCompile(`\D`)
	e164Pattern  = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)
)

func isValidEmailFormat(email string) bool {
	return emailPattern.MatchString(email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizePhone returns the E.164 form of a phone number. Ten-digit numbers
// are treated as US (NANP); ok is false when no plausible E.164 form exists.
func normalizePhone(phone string) (string, bool) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return "", false
	}
	digits := nonDigits.ReplaceAllString(trimmed, "")
	switch {
	case strings.HasPrefix(trimmed, "+"):
		candidate := "+" + digits
		return candidate, e164Pattern.MatchString(candidate)
	case len(digits) == 10:
		return "+1" + digits, true
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, true
	default:
		return digits, false
	}
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return email[at+1:]
}

var usStates = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas", "CA": "California",
	"CO": "Colorado", "CT": "Connecticut", "DE": "Delaware", "DC": "District of Columbia",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho", "IL": "Illinois",
	"IN": "Indiana", "IA": "Iowa", "KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana",
	"ME": "Maine", "MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma", "OR": "Oregon",
	"PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina", "SD": "South Dakota",
	"TN": "Tennessee", "TX": "Texas", "UT": "Utah", "VT": "Vermont", "VA": "Virginia",
	"WA": "Washington", "WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
	"PR": "Puerto Rico",
}

func stateName(code string) string {
	return usStates[strings.ToUpper(strings.TrimSpace(code))]
}

// stateCode accepts either a two-letter code or a full state name.
func stateCode(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if _, ok := usStates[strings.ToUpper(v)]; ok {
		return strings.ToUpper(v)
	}
	for code, name := range usStates {
		if strings.EqualFold(name, v) {
			return code
		}
	}
	return strings.ToUpper(v)
}
