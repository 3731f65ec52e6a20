package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/queue"
)

//go:embed templates/lead_alert.html
var templates embed.FS

var leadAlertTemplate = template.Must(template.ParseFS(templates, "templates/lead_alert.html"))

type messageSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender mails the sales inbox whenever the queue worker sees a new lead.
type EmailSender struct {
	From       string
	Recipients []string
	dialer     messageSender
}

func NewEmailSender(host string, port int, user, password, from string, recipients []string) *EmailSender {
	s := &EmailSender{From: from, Recipients: recipients}
	if host != "" {
		s.dialer = gomail.NewDialer(host, port, user, password)
	}
	return s
}

func (s *EmailSender) Configured() bool {
	return s.dialer != nil && len(s.Recipients) > 0
}

func (s *EmailSender) NotifyLeadCaptured(_ context.Context, event queue.LeadCapturedEvent) error {
	if !s.Configured() {
		return entity.ErrNotConfigured
	}

	data := alertData(event)
	body, err := renderLeadAlert(data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.Recipients...)
	m.SetHeader("Subject", fmt.Sprintf("New %s lead: %s", data.FunnelType, data.Name))
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send lead alert via smtp: %w", err)
	}
	return nil
}

func alertData(event queue.LeadCapturedEvent) LeadAlertData {
	name := event.Contact.FullName()
	if name == "" {
		name = "(no name)"
	}
	location := strings.TrimSpace(strings.Join(nonEmpty(event.Geo.StateName, event.Geo.ZipCode), " "))

	return LeadAlertData{
		EventID:     event.EventID,
		SessionID:   event.SessionID,
		FunnelType:  event.FunnelType,
		Name:        name,
		Email:       event.Contact.Email,
		Phone:       event.Contact.Phone,
		Location:    location,
		TCPAConsent: event.TCPAConsent,
		Source:      event.Attribution.UTMSource,
		LandingPage: event.Attribution.URL,
		SubmittedAt: event.SubmittedAt.UTC().Format(time.RFC1123),
	}
}

func renderLeadAlert(data LeadAlertData) (string, error) {
	var body bytes.Buffer
	if err := leadAlertTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("render lead alert: %w", err)
	}
	return body.String(), nil
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
