package ports

import (
    "context"

    "kitcheck/internal/domain"
)

// ProductCodeRepository looks up reference records by normalized code.
type ProductCodeRepository interface {
    // FindByCode returns the record for code, optionally restricted to one
    // brand. An empty brandFilter means any brand.
    FindByCode(ctx context.Context, code string, brandFilter string) (product domain.ProductCode, found bool, err error)
    FindByCodes(ctx context.Context, codes []string) (map[string]domain.ProductCode, error)
    IncrementLookupCount(ctx context.Context, productID string) error
}

// BlacklistRepository looks up codes known to be used on counterfeits.
type BlacklistRepository interface {
    FindByCode(ctx context.Context, code string) (entry domain.BlacklistCode, found bool, err error)
    FindByCodes(ctx context.Context, codes []string) (map[string]domain.BlacklistCode, error)
}

// EraReferenceRepository serves time-windowed reference tables. subject is a
// team name for manufacturer and sponsor eras, a brand name otherwise.
type EraReferenceRepository interface {
    EraWindows(ctx context.Context, subject string, kind domain.AttributeKind) ([]domain.EraWindow, error)
}

// PassportRepository stores digital product passports keyed by UID.
type PassportRepository interface {
    // Create stores p and returns it with its id and timestamps set. A taken
    // UID fails with ErrConflict.
    Create(ctx context.Context, p domain.Passport) (domain.Passport, error)
    FindByUID(ctx context.Context, uid string) (passport domain.Passport, found bool, err error)
    // Transfer hands the passport to t.ToEmail and appends t to its history,
    // but only while t.FromEmail still owns it. found is false when the UID
    // is unknown or owned by someone else.
    Transfer(ctx context.Context, uid string, t domain.Transfer, toName string) (passport domain.Passport, found bool, err error)
}

// VerificationLogger records a verification for analytics.
type VerificationLogger interface {
    LogVerification(ctx context.Context, entry domain.VerificationLogEntry) error
}

// Pinger reports store reachability for health checks.
type Pinger interface {
    Ping(ctx context.Context) error
}

// Adapters wrap these so callers can tell which store they talk to without
// caring.
var (
    // ErrNotFound is returned by writes whose target row does not exist.
    ErrNotFound = errString("not found")
    // ErrConflict is returned when a unique key is already taken.
    ErrConflict = errString("already exists")
)

type errString string

func (e errString) Error() string { return string(e) }
