package usecase

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

const defaultFunnelType = "unknown"

// RawLead is the loosely-typed payload posted by a funnel. Field names vary
// between funnels (camelCase, snake_case, flat or nested contact), so every
// field is looked up under its known aliases.
type RawLead map[string]any

// NormalizeLead turns a raw funnel payload into a LeadSubmission. It performs
// no I/O. On failure the lead is nil and the returned errors explain why.
func NormalizeLead(raw RawLead, now time.Time) (*entity.LeadSubmission, []ValidationError) {
	var errs []ValidationError

	sessionID := pick(raw, "sessionId", "session_id", "sessionID")
	if sessionID == "" {
		errs = append(errs, ValidationError{Field: "sessionId", Code: CodeMissingSession, Message: "sessionId is required"})
	}

	contactSrc := nestedOr(raw, "contact", "contactInfo", "contact_info")
	contact := entity.Contact{
		Email:     normalizeEmail(pick(contactSrc, "email", "emailAddress", "email_address")),
		FirstName: pick(contactSrc, "firstName", "first_name", "fname"),
		LastName:  pick(contactSrc, "lastName", "last_name", "lname"),
	}
	if contact.FirstName == "" && contact.LastName == "" {
		contact.FirstName, contact.LastName = splitName(pick(contactSrc, "name", "fullName", "full_name"))
	}
	if phone := pick(contactSrc, "phone", "phoneNumber", "phone_number"); phone != "" {
		contact.Phone, _ = normalizePhone(phone)
	}
	if contact.Email != "" && !isValidEmailFormat(contact.Email) {
		errs = append(errs, ValidationError{Field: "contact.email", Code: CodeInvalidEmailFormat, Message: "email address is malformed"})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	funnelType := strings.ToLower(pick(raw, "funnelType", "funnel_type", "funnel"))
	if funnelType == "" {
		funnelType = defaultFunnelType
	}

	userID := pick(raw, "userId", "user_id")
	if userID == "" {
		userID = sessionID
	}

	geoSrc := nestedOr(raw, "geo", "location")
	geo := entity.Geo{
		ZipCode: pick(geoSrc, "zipCode", "zip_code", "zip", "postalCode"),
		State:   stateCode(pick(geoSrc, "state", "stateCode", "state_code")),
	}
	geo.StateName = stateName(geo.State)
	if geo.StateName == "" {
		geo.StateName = pick(geoSrc, "stateName", "state_name")
	}

	consentSrc := nestedOr(raw, "consent", "tcpa")
	consent := entity.Consent{
		TrustedFormCertURL: pick(consentSrc, "trustedFormCertUrl", "trusted_form_cert_url", "xxTrustedFormCertUrl", "certUrl"),
		LeadIDToken:        pick(consentSrc, "leadIdToken", "leadid_token", "jornayaLeadId", "universal_leadid"),
		TCPAConsent:        pickBool(consentSrc, "tcpaConsent", "tcpa_consent", "consentGiven", "consent_given"),
		ConsentText:        pick(consentSrc, "consentText", "consent_text", "disclosure"),
	}

	return &entity.LeadSubmission{
		SessionID:         sessionID,
		UserID:            userID,
		Contact:           contact,
		FunnelType:        funnelType,
		Answers:           answers(raw),
		CalculatedResults: calculatedResults(raw),
		Geo:               geo,
		Consent:           consent,
		Attribution:       attribution(raw),
		SubmittedAt:       submittedAt(raw, now),
	}, nil
}

// attribution recomputes path, search and UTM tags from the page URL. Client
// supplied path/search are only used when no parseable URL was sent.
func attribution(raw RawLead) entity.Attribution {
	attr := entity.Attribution{
		URL:      pick(raw, "url", "pageUrl", "page_url", "landingPage", "landing_page"),
		Referrer: pick(raw, "referrer", "referer"),
	}

	var query url.Values
	if u, err := url.Parse(attr.URL); err == nil && attr.URL != "" && (u.Host != "" || u.Path != "" || u.RawQuery != "") {
		attr.Path = u.Path
		if attr.Path == "" {
			attr.Path = "/"
		}
		if u.RawQuery != "" {
			attr.Search = "?" + u.RawQuery
		}
		query = u.Query()
	} else {
		if p := pick(raw, "path", "pathname"); p != "" {
			attr.Path = "/" + strings.TrimPrefix(p, "/")
		}
		if s := pick(raw, "search"); s != "" {
			attr.Search = "?" + strings.TrimPrefix(s, "?")
			query, _ = url.ParseQuery(strings.TrimPrefix(s, "?"))
		}
	}

	utm := func(key, camel string) string {
		if v := strings.TrimSpace(query.Get(key)); v != "" {
			return v
		}
		return pick(raw, camel, key)
	}
	attr.UTMSource = utm("utm_source", "utmSource")
	attr.UTMMedium = utm("utm_medium", "utmMedium")
	attr.UTMCampaign = utm("utm_campaign", "utmCampaign")
	attr.UTMTerm = utm("utm_term", "utmTerm")
	attr.UTMContent = utm("utm_content", "utmContent")
	return attr
}

// answers accepts either an ordered list of {questionId, answer} items or an
// object keyed by question id; object keys are sorted so output is stable.
func answers(raw RawLead) []entity.Answer {
	v := pickAny(raw, "answers", "quizAnswers", "quiz_answers")
	switch typed := v.(type) {
	case []any:
		out := make([]entity.Answer, 0, len(typed))
		for _, item := range typed {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			qid := pick(m, "questionId", "question_id", "id", "question")
			if qid == "" {
				continue
			}
			out = append(out, entity.Answer{QuestionID: qid, Value: pickAny(m, "answer", "value")})
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]entity.Answer, 0, len(keys))
		for _, k := range keys {
			out = append(out, entity.Answer{QuestionID: k, Value: typed[k]})
		}
		return out
	default:
		return []entity.Answer{}
	}
}

func calculatedResults(raw RawLead) map[string]any {
	src, _ := pickAny(raw, "calculatedResults", "calculated_results", "results").(map[string]any)
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func submittedAt(raw RawLead, now time.Time) time.Time {
	if s := pick(raw, "submittedAt", "submitted_at", "timestamp"); s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// nestedOr returns the first nested object found under keys, or the payload
// itself for funnels that post flat fields.
func nestedOr(raw RawLead, keys ...string) map[string]any {
	for _, k := range keys {
		if m, ok := raw[k].(map[string]any); ok {
			return m
		}
	}
	return raw
}

func pickAny(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func pick(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringify(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func pickBool(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		switch v := m[k].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b
			}
		}
	}
	return false
}

func stringify(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return ""
	}
}
