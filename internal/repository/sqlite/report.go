package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/prodevhub/internal/apperror"
	"github.com/sakif/prodevhub/internal/model"
	"github.com/sakif/prodevhub/internal/repository"
)

var _ repository.ReportRepository = (*ReportDB)(nil)

// ReportDB stores generated AI reports. Reports are append-only.
type ReportDB struct {
	conn *sql.DB
}

// Create persists a report. The insights struct is stored as a JSON document.
func (r *ReportDB) Create(ctx context.Context, report *model.AIReport) error {
	now := time.Now().UTC()
	report.ID = xid.New().String()
	report.CreatedAt = now
	report.UpdatedAt = now

	insights, err := json.Marshal(report.Insights)
	if err != nil {
		return fmt.Errorf("sqlite: encoding insights: %w", err)
	}

	_, err = r.conn.ExecContext(ctx,
		`INSERT INTO ai_reports (id, user_id, type, report_text, insights,
			period_start, period_end, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.UserID,
		string(report.Type),
		report.ReportText,
		string(insights),
		toMillis(report.PeriodStart),
		toMillis(report.PeriodEnd),
		toMillis(report.CreatedAt),
		toMillis(report.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating report: %w", err)
	}
	return nil
}

// LatestSince returns the newest report of typ created at or after since.
func (r *ReportDB) LatestSince(ctx context.Context, userID string, typ model.ReportType, since time.Time) (*model.AIReport, error) {
	var (
		report      model.AIReport
		reportType  string
		insights    string
		periodStart int64
		periodEnd   int64
		createdAt   int64
		updatedAt   int64
	)
	err := r.conn.QueryRowContext(ctx,
		`SELECT id, user_id, type, report_text, insights,
			period_start, period_end, created_at, updated_at
		 FROM ai_reports
		 WHERE user_id = ? AND type = ? AND created_at >= ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		userID, string(typ), toMillis(since),
	).Scan(
		&report.ID,
		&report.UserID,
		&reportType,
		&report.ReportText,
		&insights,
		&periodStart,
		&periodEnd,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("report", string(typ))
		}
		return nil, fmt.Errorf("sqlite: getting latest %s report: %w", typ, err)
	}

	if err := json.Unmarshal([]byte(insights), &report.Insights); err != nil {
		return nil, fmt.Errorf("sqlite: decoding insights: %w", err)
	}
	report.Type = model.ReportType(reportType)
	report.PeriodStart = fromMillis(periodStart)
	report.PeriodEnd = fromMillis(periodEnd)
	report.CreatedAt = fromMillis(createdAt)
	report.UpdatedAt = fromMillis(updatedAt)
	return &report, nil
}
