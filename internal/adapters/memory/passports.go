package memory

import (
    "context"
    "fmt"
    "time"

    "kitcheck/internal/domain"
    "kitcheck/internal/ports"
)

// Passports is the passport view of a Store.
type Passports struct{ s *Store }

// clonePassport copies the slices so callers never share them with the store.
func clonePassport(p domain.Passport) domain.Passport {
    p.TransferHistory = append([]domain.Transfer{}, p.TransferHistory...)
    p.Evidence = append([]domain.Evidence{}, p.Evidence...)
    return p
}

func (r *Passports) Create(ctx context.Context, p domain.Passport) (domain.Passport, error) {
    if err := ctx.Err(); err != nil {
        return domain.Passport{}, err
    }
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if _, taken := r.s.passports[p.UID]; taken {
        return domain.Passport{}, fmt.Errorf("passport %s: %w", p.UID, ports.ErrConflict)
    }
    now := time.Now().UTC()
    p.ID = r.s.id("dpp-")
    p.CreatedAt, p.UpdatedAt = now, now
    p = clonePassport(p)
    r.s.passports[p.UID] = p
    return clonePassport(p), nil
}

func (r *Passports) FindByUID(ctx context.Context, uid string) (domain.Passport, bool, error) {
    if err := ctx.Err(); err != nil {
        return domain.Passport{}, false, err
    }
    r.s.mu.RLock()
    defer r.s.mu.RUnlock()
    p, ok := r.s.passports[uid]
    if !ok {
        return domain.Passport{}, false, nil
    }
    return clonePassport(p), true, nil
}

func (r *Passports) Transfer(ctx context.Context, uid string, t domain.Transfer, toName string) (domain.Passport, bool, error) {
    if err := ctx.Err(); err != nil {
        return domain.Passport{}, false, err
    }
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    p, ok := r.s.passports[uid]
    if !ok || !p.OwnedBy(t.FromEmail) {
        return domain.Passport{}, false, nil
    }
    p = clonePassport(p)
    p.OwnerEmail = t.ToEmail
    p.OwnerName = toName
    p.TransferHistory = append(p.TransferHistory, t)
    p.UpdatedAt = t.Date
    r.s.passports[uid] = p
    return clonePassport(p), true, nil
}
