// Package memory is an in-process reference store for local runs and tests.
package memory

import (
    "context"
    "fmt"
    "strconv"
    "strings"
    "sync"

    "kitcheck/internal/domain"
    "kitcheck/internal/ports"
)

type eraKey struct {
    subject string
    kind    domain.AttributeKind
}

// Store keeps every table in maps behind one lock. Codes are keyed by their
// normalized form.
type Store struct {
    mu        sync.RWMutex
    products  map[string]domain.ProductCode
    blacklist map[string]domain.BlacklistCode
    eras      map[eraKey][]domain.EraWindow
    logs      []domain.VerificationLogEntry
    passports map[string]domain.Passport
    nextID    int
}

func New() *Store {
    return &Store{
        products:  map[string]domain.ProductCode{},
        blacklist: map[string]domain.BlacklistCode{},
        eras:      map[eraKey][]domain.EraWindow{},
        passports: map[string]domain.Passport{},
    }
}

func (s *Store) id(prefix string) string {
    s.nextID++
    return prefix + strconv.Itoa(s.nextID)
}

// AddProduct inserts or replaces a product record and returns its id.
func (s *Store) AddProduct(p domain.ProductCode) string {
    s.mu.Lock()
    defer s.mu.Unlock()
    p.Code = domain.NormalizeCode(p.Code)
    if p.ID == "" {
        p.ID = s.id("prod-")
    }
    s.products[p.Code] = p
    return p.ID
}

func (s *Store) AddBlacklist(b domain.BlacklistCode) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b.Code = domain.NormalizeCode(b.Code)
    if b.ID == "" {
        b.ID = s.id("bl-")
    }
    s.blacklist[b.Code] = b
}

func (s *Store) SetEraWindows(subject string, kind domain.AttributeKind, windows []domain.EraWindow) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.eras[eraKey{strings.ToLower(strings.TrimSpace(subject)), kind}] = append([]domain.EraWindow(nil), windows...)
}

// Logs returns a copy of the audit entries written so far.
func (s *Store) Logs() []domain.VerificationLogEntry {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return append([]domain.VerificationLogEntry(nil), s.logs...)
}

func (s *Store) Products() *Products   { return &Products{s} }
func (s *Store) Blacklist() *Blacklist { return &Blacklist{s} }
func (s *Store) Passports() *Passports { return &Passports{s} }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) EraWindows(ctx context.Context, subject string, kind domain.AttributeKind) ([]domain.EraWindow, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    s.mu.RLock()
    defer s.mu.RUnlock()
    return append([]domain.EraWindow(nil), s.eras[eraKey{strings.ToLower(strings.TrimSpace(subject)), kind}]...), nil
}

func (s *Store) LogVerification(ctx context.Context, entry domain.VerificationLogEntry) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    s.logs = append(s.logs, entry)
    return nil
}

var (
    _ ports.EraReferenceRepository = (*Store)(nil)
    _ ports.VerificationLogger     = (*Store)(nil)
    _ ports.Pinger                 = (*Store)(nil)
    _ ports.ProductCodeRepository  = (*Products)(nil)
    _ ports.BlacklistRepository    = (*Blacklist)(nil)
    _ ports.PassportRepository     = (*Passports)(nil)
)

// Products is the product-code view of a Store.
type Products struct{ s *Store }

func (r *Products) FindByCode(ctx context.Context, code string, brandFilter string) (domain.ProductCode, bool, error) {
    if err := ctx.Err(); err != nil {
        return domain.ProductCode{}, false, err
    }
    r.s.mu.RLock()
    defer r.s.mu.RUnlock()
    p, ok := r.s.products[domain.NormalizeCode(code)]
    if !ok {
        return domain.ProductCode{}, false, nil
    }
    if brandFilter != "" && !strings.EqualFold(p.Brand, brandFilter) {
        return domain.ProductCode{}, false, nil
    }
    return p, true, nil
}

func (r *Products) FindByCodes(ctx context.Context, codes []string) (map[string]domain.ProductCode, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    r.s.mu.RLock()
    defer r.s.mu.RUnlock()
    out := make(map[string]domain.ProductCode)
    for _, c := range codes {
        n := domain.NormalizeCode(c)
        if p, ok := r.s.products[n]; ok {
            out[n] = p
        }
    }
    return out, nil
}

func (r *Products) IncrementLookupCount(ctx context.Context, id string) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    for code, p := range r.s.products {
        if p.ID == id {
            p.LookupCount++
            r.s.products[code] = p
            return nil
        }
    }
    return fmt.Errorf("product %s: %w", id, ports.ErrNotFound)
}

// Blacklist is the blacklist view of a Store.
type Blacklist struct{ s *Store }

func (r *Blacklist) FindByCode(ctx context.Context, code string) (domain.BlacklistCode, bool, error) {
    if err := ctx.Err(); err != nil {
        return domain.BlacklistCode{}, false, err
    }
    r.s.mu.RLock()
    defer r.s.mu.RUnlock()
    b, ok := r.s.blacklist[domain.NormalizeCode(code)]
    return b, ok, nil
}

func (r *Blacklist) FindByCodes(ctx context.Context, codes []string) (map[string]domain.BlacklistCode, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    r.s.mu.RLock()
    defer r.s.mu.RUnlock()
    out := make(map[string]domain.BlacklistCode)
    for _, c := range codes {
        n := domain.NormalizeCode(c)
        if b, ok := r.s.blacklist[n]; ok {
            out[n] = b
        }
    }
    return out, nil
}
