// Command test-ghl-webhook sends one sample annuity lead to the configured
// GoHighLevel inbound webhook so the field mapping can be checked by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/conversn-io/seniorsimple-sub006/internal/infra/integration/gohighlevel"
	"github.com/conversn-io/seniorsimple-sub006/internal/logger"
	"github.com/conversn-io/seniorsimple-sub006/internal/usecase"
)

func main() {
	shape := flag.String("shape", "", "payload shape: nested or flat (defaults to GHL_PAYLOAD_SHAPE)")
	flag.Parse()

	log, _ := logger.New("development", "debug")
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env not found, using process environment")
	}

	webhookURL := os.Getenv("GHL_WEBHOOK_URL")
	if webhookURL == "" {
		log.Fatal().Msg("GHL_WEBHOOK_URL must be set")
	}
	if *shape == "" {
		*shape = os.Getenv("GHL_PAYLOAD_SHAPE")
	}

	raw := usecase.RawLead{
		"sessionId":  fmt.Sprintf("sample-%d", time.Now().Unix()),
		"funnelType": "annuity",
		"contact": map[string]any{
			"firstName": "Test",
			"lastName":  "Lead",
			"email":     "test.lead@example.com",
			"phone":     "(555) 010-2030",
		},
		"zipCode":     "33101",
		"state":       "FL",
		"tcpaConsent": true,
		"quizAnswers": map[string]any{
			"age_range":       "65-70",
			"retirement_goal": "guaranteed income",
		},
		"url": "https://seniorsimple.org/quiz/annuity?utm_source=sample&utm_campaign=webhook-check",
	}

	lead, fieldErrs := usecase.NormalizeLead(raw, time.Now())
	if len(fieldErrs) > 0 {
		log.Fatal().Interface("errors", fieldErrs).Msg("sample lead does not normalize")
	}

	client := gohighlevel.NewClient(webhookURL, os.Getenv("GHL_API_KEY"), *shape, 10*time.Second)

	log.Info().Str("session_id", lead.SessionID).Str("shape", *shape).Msg("sending sample lead")
	resultID, err := client.Deliver(context.Background(), lead)
	if err != nil {
		log.Fatal().Err(err).Msg("webhook delivery failed")
	}
	log.Info().Str("result_id", resultID).Msg("webhook accepted sample lead")
}
