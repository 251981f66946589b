package postgres

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/goccy/go-json"

    "kitcheck/internal/domain"
    "kitcheck/internal/ports"
)

// AuditLog writes verification_logs rows through database/sql.
type AuditLog struct {
    db *sql.DB
}

var _ ports.VerificationLogger = (*AuditLog)(nil)

func NewAuditLog(db *sql.DB) *AuditLog { return &AuditLog{db: db} }

const insertVerificationLog = `INSERT INTO verification_logs (code_checked, brand_filter, result_type, confidence_score, signals_used, checked_at) VALUES ($1, $2, $3, $4, $5, $6)`

func (a *AuditLog) LogVerification(ctx context.Context, e domain.VerificationLogEntry) error {
    signals, err := json.Marshal(e.Signals)
    if err != nil {
        return fmt.Errorf("encode signals: %w", err)
    }
    var brand sql.NullString
    if e.BrandFilter != "" {
        brand = sql.NullString{String: e.BrandFilter, Valid: true}
    }
    if _, err := a.db.ExecContext(ctx, insertVerificationLog,
        e.Code, brand, string(e.Verdict), e.ConfidenceScore, string(signals), e.CheckedAt); err != nil {
        return fmt.Errorf("insert verification_logs: %w", err)
    }
    return nil
}
