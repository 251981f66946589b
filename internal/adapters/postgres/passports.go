package postgres

import (
    "context"
    "errors"
    "fmt"

    "github.com/goccy/go-json"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"

    "kitcheck/internal/domain"
    "kitcheck/internal/ports"
)

var _ ports.PassportRepository = (*PassportRepo)(nil)

// PassportRepository
type PassportRepo struct{ db *DB }

func (db *DB) Passports() *PassportRepo { return &PassportRepo{db} }

const passportColumns = `id::text, uid, product_code_id::text, product_code, owner_email, owner_name,
    transfer_history, verification_status, verification_date, verification_evidence,
    qr_code_url, notes, created_at, updated_at`

const uniqueViolation = "23505"

func scanPassport(row pgx.Row) (domain.Passport, error) {
    var p domain.Passport
    var ownerName, qr, notes *string
    var status string
    var history, evidence []byte
    err := row.Scan(&p.ID, &p.UID, &p.ProductCodeID, &p.ProductCode, &p.OwnerEmail, &ownerName,
        &history, &status, &p.VerificationDate, &evidence, &qr, &notes, &p.CreatedAt, &p.UpdatedAt)
    if err != nil {
        return p, err
    }
    p.OwnerName, p.QRCodeURL, p.Notes = deref(ownerName), deref(qr), deref(notes)
    p.Status = domain.PassportStatus(status)
    if err := json.Unmarshal(history, &p.TransferHistory); err != nil {
        return p, fmt.Errorf("decode transfer_history: %w", err)
    }
    if err := json.Unmarshal(evidence, &p.Evidence); err != nil {
        return p, fmt.Errorf("decode verification_evidence: %w", err)
    }
    return p, nil
}

func nullable(s string) *string {
    if s == "" {
        return nil
    }
    return &s
}

// jsonArray encodes v, writing a nil slice as [] rather than null.
func jsonArray[T any](v []T) (string, error) {
    if v == nil {
        v = []T{}
    }
    b, err := json.Marshal(v)
    return string(b), err
}

func (r *PassportRepo) Create(ctx context.Context, p domain.Passport) (domain.Passport, error) {
    history, err := jsonArray(p.TransferHistory)
    if err != nil {
        return domain.Passport{}, err
    }
    evidence, err := jsonArray(p.Evidence)
    if err != nil {
        return domain.Passport{}, err
    }
    created, err := scanPassport(r.db.Pool.QueryRow(ctx, `
        INSERT INTO digital_passports (uid, product_code_id, product_code, owner_email, owner_name,
            transfer_history, verification_status, verification_date, verification_evidence, qr_code_url, notes)
        VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9::jsonb, $10, $11)
        RETURNING `+passportColumns,
        p.UID, p.ProductCodeID, p.ProductCode, p.OwnerEmail, nullable(p.OwnerName),
        history, string(p.Status), p.VerificationDate, evidence, nullable(p.QRCodeURL), nullable(p.Notes)))
    var pgErr *pgconn.PgError
    if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "digital_passports_uid_key" {
        return domain.Passport{}, fmt.Errorf("passport %s: %w", p.UID, ErrConflict)
    }
    if err != nil {
        return domain.Passport{}, fmt.Errorf("insert digital_passports: %w", err)
    }
    return created, nil
}

func (r *PassportRepo) FindByUID(ctx context.Context, uid string) (domain.Passport, bool, error) {
    p, err := scanPassport(r.db.Pool.QueryRow(ctx, `SELECT `+passportColumns+` FROM digital_passports WHERE uid = $1`, uid))
    if errors.Is(err, pgx.ErrNoRows) {
        return domain.Passport{}, false, nil
    }
    if err != nil {
        return domain.Passport{}, false, fmt.Errorf("select digital_passports: %w", err)
    }
    return p, true, nil
}

// Transfer checks ownership and appends to the history in one statement, so
// two racing transfers cannot both succeed.
func (r *PassportRepo) Transfer(ctx context.Context, uid string, t domain.Transfer, toName string) (domain.Passport, bool, error) {
    entry, err := jsonArray([]domain.Transfer{t})
    if err != nil {
        return domain.Passport{}, false, err
    }
    p, err := scanPassport(r.db.Pool.QueryRow(ctx, `
        UPDATE digital_passports
        SET owner_email = $3, owner_name = $4,
            transfer_history = transfer_history || $5::jsonb,
            updated_at = $6
        WHERE uid = $1 AND lower(owner_email) = lower($2)
        RETURNING `+passportColumns,
        uid, t.FromEmail, t.ToEmail, nullable(toName), entry, t.Date))
    if errors.Is(err, pgx.ErrNoRows) {
        return domain.Passport{}, false, nil
    }
    if err != nil {
        return domain.Passport{}, false, fmt.Errorf("update digital_passports: %w", err)
    }
    return p, true, nil
}
