package postgres

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/jackc/pgx/v5"

    "kitcheck/internal/domain"
    "kitcheck/internal/ports"
)

var (
    _ ports.ProductCodeRepository  = (*ProductRepo)(nil)
    _ ports.BlacklistRepository    = (*BlacklistRepo)(nil)
    _ ports.EraReferenceRepository = (*EraRepo)(nil)
    _ ports.Pinger                 = (*DB)(nil)
)

// ProductCodeRepository
type ProductRepo struct{ db *DB }

const productColumns = `id::text, code, brand, team, season, kit_type, variant, verified, verification_source,
    primary_color, sponsor, technology, tier, label_position_era, country_of_manufacture,
    expected_suffix_digit, lookup_count`

func scanProduct(row pgx.Row) (domain.ProductCode, error) {
    var p domain.ProductCode
    var team, season, kitType, variant, source, color, sponsor, tech, tier, label, origin *string
    var digit *int16
    err := row.Scan(&p.ID, &p.Code, &p.Brand, &team, &season, &kitType, &variant, &p.Verified, &source,
        &color, &sponsor, &tech, &tier, &label, &origin, &digit, &p.LookupCount)
    if err != nil {
        return p, err
    }
    p.Team, p.Season, p.KitType, p.Variant = deref(team), deref(season), deref(kitType), deref(variant)
    p.VerificationSource, p.PrimaryColor, p.Sponsor = deref(source), deref(color), deref(sponsor)
    p.Technology, p.Tier, p.LabelPositionEra, p.CountryOfManufacture = deref(tech), deref(tier), deref(label), deref(origin)
    if digit != nil {
        d := int(*digit)
        p.ExpectedSuffixDigit = &d
    }
    return p, nil
}

func deref(s *string) string {
    if s == nil {
        return ""
    }
    return *s
}

func (r *ProductRepo) FindByCode(ctx context.Context, code string, brandFilter string) (domain.ProductCode, bool, error) {
    q := `SELECT ` + productColumns + ` FROM product_codes WHERE code = $1`
    args := []any{domain.NormalizeCode(code)}
    if brandFilter != "" {
        q += ` AND lower(brand) = lower($2)`
        args = append(args, strings.TrimSpace(brandFilter))
    }
    p, err := scanProduct(r.db.Pool.QueryRow(ctx, q, args...))
    if errors.Is(err, pgx.ErrNoRows) {
        return domain.ProductCode{}, false, nil
    }
    if err != nil {
        return domain.ProductCode{}, false, fmt.Errorf("select product_codes: %w", err)
    }
    return p, true, nil
}

func (r *ProductRepo) FindByCodes(ctx context.Context, codes []string) (map[string]domain.ProductCode, error) {
    out := make(map[string]domain.ProductCode, len(codes))
    if len(codes) == 0 {
        return out, nil
    }
    rows, err := r.db.Pool.Query(ctx, `SELECT `+productColumns+` FROM product_codes WHERE code = ANY($1)`, normalizeAll(codes))
    if err != nil {
        return nil, fmt.Errorf("select product_codes: %w", err)
    }
    defer rows.Close()
    for rows.Next() {
        p, err := scanProduct(rows)
        if err != nil {
            return nil, err
        }
        out[p.Code] = p
    }
    return out, rows.Err()
}

// IncrementLookupCount bumps the counter in one statement so concurrent
// lookups never lose an increment.
func (r *ProductRepo) IncrementLookupCount(ctx context.Context, productID string) error {
    tag, err := r.db.Pool.Exec(ctx, `UPDATE product_codes SET lookup_count = lookup_count + 1, updated_at = now() WHERE id = $1`, productID)
    if err != nil {
        return err
    }
    if tag.RowsAffected() == 0 {
        return fmt.Errorf("product %s: %w", productID, ErrNotFound)
    }
    return nil
}

// BlacklistRepository
type BlacklistRepo struct{ db *DB }

const blacklistColumns = `id::text, code, brand, reason, severity, legitimate_use, reported_count`

func scanBlacklist(row pgx.Row) (domain.BlacklistCode, error) {
    var b domain.BlacklistCode
    var severity string
    var legit *string
    if err := row.Scan(&b.ID, &b.Code, &b.Brand, &b.Reason, &severity, &legit, &b.ReportedCount); err != nil {
        return b, err
    }
    b.Severity = domain.Severity(severity)
    b.LegitimateUse = deref(legit)
    return b, nil
}

func (r *BlacklistRepo) FindByCode(ctx context.Context, code string) (domain.BlacklistCode, bool, error) {
    b, err := scanBlacklist(r.db.Pool.QueryRow(ctx, `SELECT `+blacklistColumns+` FROM blacklist_codes WHERE code = $1`, domain.NormalizeCode(code)))
    if errors.Is(err, pgx.ErrNoRows) {
        return domain.BlacklistCode{}, false, nil
    }
    if err != nil {
        return domain.BlacklistCode{}, false, fmt.Errorf("select blacklist_codes: %w", err)
    }
    return b, true, nil
}

func (r *BlacklistRepo) FindByCodes(ctx context.Context, codes []string) (map[string]domain.BlacklistCode, error) {
    out := make(map[string]domain.BlacklistCode, len(codes))
    if len(codes) == 0 {
        return out, nil
    }
    rows, err := r.db.Pool.Query(ctx, `SELECT `+blacklistColumns+` FROM blacklist_codes WHERE code = ANY($1)`, normalizeAll(codes))
    if err != nil {
        return nil, fmt.Errorf("select blacklist_codes: %w", err)
    }
    defer rows.Close()
    for rows.Next() {
        b, err := scanBlacklist(rows)
        if err != nil {
            return nil, err
        }
        out[b.Code] = b
    }
    return out, rows.Err()
}

// EraReferenceRepository
type EraRepo struct{ db *DB }

func (r *EraRepo) EraWindows(ctx context.Context, subject string, kind domain.AttributeKind) ([]domain.EraWindow, error) {
    rows, err := r.db.Pool.Query(ctx, `
        SELECT value, start_year, end_year, COALESCE(tier, ''), COALESCE(mismatch, '')
        FROM era_references
        WHERE lower(subject) = lower($1) AND kind = $2
        ORDER BY start_year, id
    `, strings.TrimSpace(subject), string(kind))
    if err != nil {
        return nil, fmt.Errorf("select era_references: %w", err)
    }
    defer rows.Close()
    var out []domain.EraWindow
    for rows.Next() {
        var w domain.EraWindow
        var mismatch string
        if err := rows.Scan(&w.Value, &w.StartYear, &w.EndYear, &w.Tier, &mismatch); err != nil {
            return nil, err
        }
        w.Mismatch = domain.SignalValue(mismatch)
        out = append(out, w)
    }
    return out, rows.Err()
}

func normalizeAll(codes []string) []string {
    out := make([]string, len(codes))
    for i, c := range codes {
        out[i] = domain.NormalizeCode(c)
    }
    return out
}

var (
    ErrNotFound = ports.ErrNotFound
    ErrConflict = ports.ErrConflict
)
