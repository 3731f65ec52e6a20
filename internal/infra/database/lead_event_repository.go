package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

// LeadEventRepository writes to the append-only lead_events table. session_id
// is a non-unique correlation column; the dedup guard, not the schema, keeps
// retries from inserting twice.
type LeadEventRepository struct {
	DB *sql.DB
}

func NewLeadEventRepository(db *sql.DB) *LeadEventRepository {
	return &LeadEventRepository{DB: db}
}

func (r *LeadEventRepository) Name() entity.Destination {
	return entity.DestinationDatabase
}

// Deliver makes the repository the "database" destination of the dispatcher.
func (r *LeadEventRepository) Deliver(ctx context.Context, lead *entity.LeadSubmission) (string, error) {
	return r.Insert(ctx, lead)
}

func (r *LeadEventRepository) Insert(ctx context.Context, lead *entity.LeadSubmission) (string, error) {
	payload, err := json.Marshal(lead)
	if err != nil {
		return "", fmt.Errorf("%w: encode lead: %v", entity.ErrRejected, err)
	}

	query := `
		INSERT INTO lead_events (
			id, session_id, user_id, funnel_type,
			email, phone, first_name, last_name, zip_code, state,
			trusted_form_cert_url, utm_source, utm_campaign,
			payload, status, submitted_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
	`

	id := uuid.New().String()
	_, err = r.DB.ExecContext(ctx, query,
		id,
		lead.SessionID,
		lead.UserID,
		lead.FunnelType,
		nullString(lead.Contact.Email),
		nullString(lead.Contact.Phone),
		nullString(lead.Contact.FirstName),
		nullString(lead.Contact.LastName),
		nullString(lead.Geo.ZipCode),
		nullString(lead.Geo.State),
		nullString(lead.Consent.TrustedFormCertURL),
		nullString(lead.Attribution.UTMSource),
		nullString(lead.Attribution.UTMCampaign),
		payload,
		entity.LeadStatusCaptured,
		lead.SubmittedAt,
	)
	if err != nil {
		return "", classifyError("insert lead event", err)
	}
	return id, nil
}

func (r *LeadEventRepository) ListUnconverted(ctx context.Context, since time.Time, funnelType string, limit int) ([]entity.LeadEvent, error) {
	query := `
		SELECT id, session_id, funnel_type,
		       COALESCE(email, ''), COALESCE(phone, ''),
		       COALESCE(first_name, ''), COALESCE(last_name, ''),
		       COALESCE(zip_code, ''), COALESCE(state, ''),
		       status, created_at, converted_at
		FROM lead_events
		WHERE status = $1
		  AND created_at >= $2
		  AND ($3 = '' OR funnel_type = $3)
		ORDER BY created_at DESC
		LIMIT $4
	`

	rows, err := r.DB.QueryContext(ctx, query, entity.LeadStatusCaptured, since, funnelType, limit)
	if err != nil {
		return nil, fmt.Errorf("list unconverted leads: %w", err)
	}
	defer rows.Close()

	var events []entity.LeadEvent
	for rows.Next() {
		var (
			e           entity.LeadEvent
			convertedAt sql.NullTime
		)
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.FunnelType,
			&e.Email, &e.Phone,
			&e.FirstName, &e.LastName,
			&e.ZipCode, &e.State,
			&e.Status, &e.CreatedAt, &convertedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lead event: %w", err)
		}
		if convertedAt.Valid {
			t := convertedAt.Time
			e.ConvertedAt = &t
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *LeadEventRepository) MarkConverted(ctx context.Context, sessionID string) (int64, error) {
	query := `
		UPDATE lead_events
		SET status = $1, converted_at = NOW()
		WHERE session_id = $2 AND status = $3
	`
	res, err := r.DB.ExecContext(ctx, query, entity.LeadStatusConverted, sessionID, entity.LeadStatusCaptured)
	if err != nil {
		return 0, fmt.Errorf("mark converted: %w", err)
	}
	return res.RowsAffected()
}

// ExpireBefore moves captured leads older than cutoff out of the retarget pool.
func (r *LeadEventRepository) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE lead_events
		SET status = $1
		WHERE status = $2 AND created_at < $3
	`
	res, err := r.DB.ExecContext(ctx, query, entity.LeadStatusExpired, entity.LeadStatusCaptured, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire leads: %w", err)
	}
	return res.RowsAffected()
}

func (r *LeadEventRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

// classifyError maps Postgres data exceptions (class 22) and integrity
// violations (class 23) to entity.ErrRejected: resending the same lead would
// fail the same way. Everything else is a transport error.
func classifyError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "22", "23":
			return fmt.Errorf("%s: %w: %s (%s)", op, entity.ErrRejected, pqErr.Message, pqErr.Code)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
