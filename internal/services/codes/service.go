// Package codes answers direct reference lookups without scoring.
package codes

import (
    "context"
    "fmt"
    "strings"

    "kitcheck/internal/domain"
    "kitcheck/internal/patterns"
    "kitcheck/internal/ports"
)

const DefaultMaxBatch = 100

type Service struct {
    products  ports.ProductCodeRepository
    blacklist ports.BlacklistRepository
    maxBatch  int
}

var _ ports.Codes = (*Service)(nil)

func New(products ports.ProductCodeRepository, blacklist ports.BlacklistRepository, maxBatch int) *Service {
    if maxBatch <= 0 {
        maxBatch = DefaultMaxBatch
    }
    return &Service{products: products, blacklist: blacklist, maxBatch: maxBatch}
}

// MaxBatch is the largest batch ValidateBatch accepts.
func (s *Service) MaxBatch() int { return s.maxBatch }

func (s *Service) Lookup(ctx context.Context, code string, brandFilter string) (ports.LookupResult, error) {
    normalized, err := domain.ValidateCode(code)
    if err != nil {
        return ports.LookupResult{}, err
    }
    filter := strings.TrimSpace(brandFilter)
    if strings.EqualFold(filter, "all") {
        filter = ""
    }
    product, found, err := s.products.FindByCode(ctx, normalized, filter)
    if err != nil {
        return ports.LookupResult{}, fmt.Errorf("lookup %s: %w", normalized, err)
    }
    if !found {
        return ports.LookupResult{}, ErrNotFound
    }
    res := ports.LookupResult{Product: product, DetectedBrand: patterns.DetectBrand(normalized)}
    entry, listed, err := s.blacklist.FindByCode(ctx, normalized)
    if err != nil {
        return ports.LookupResult{}, fmt.Errorf("blacklist %s: %w", normalized, err)
    }
    if listed {
        res.Blacklisted = true
        res.BlacklistEntry = &entry
    }
    return res, nil
}

// ValidateBatch reports catalogue and blacklist status for each distinct
// code, in first-seen order. Codes that fail validation are reported as not
// found without being looked up.
func (s *Service) ValidateBatch(ctx context.Context, codes []string) ([]ports.CodeStatus, ports.BatchStats, error) {
    if len(codes) == 0 {
        return nil, ports.BatchStats{}, ErrEmptyBatch
    }
    if len(codes) > s.maxBatch {
        return nil, ports.BatchStats{}, fmt.Errorf("%w: %d codes, limit %d", ErrBatchTooLarge, len(codes), s.maxBatch)
    }

    seen := make(map[string]bool, len(codes))
    var ordered, valid []string
    for _, c := range codes {
        n := domain.NormalizeCode(c)
        if n == "" || seen[n] {
            continue
        }
        seen[n] = true
        ordered = append(ordered, n)
        if _, err := domain.ValidateCode(n); err == nil {
            valid = append(valid, n)
        }
    }

    var (
        products = map[string]domain.ProductCode{}
        listed   = map[string]domain.BlacklistCode{}
        err      error
    )
    if len(valid) > 0 {
        if products, err = s.products.FindByCodes(ctx, valid); err != nil {
            return nil, ports.BatchStats{}, fmt.Errorf("batch lookup: %w", err)
        }
        if listed, err = s.blacklist.FindByCodes(ctx, valid); err != nil {
            return nil, ports.BatchStats{}, fmt.Errorf("batch blacklist: %w", err)
        }
    }

    out := make([]ports.CodeStatus, 0, len(ordered))
    stats := ports.BatchStats{Total: len(ordered)}
    for _, code := range ordered {
        st := ports.CodeStatus{Code: code}
        if p, ok := products[code]; ok {
            st.Found, st.Verified, st.Brand = true, p.Verified, p.Brand
            stats.Found++
            if p.Verified {
                stats.Verified++
            }
        }
        if _, ok := listed[code]; ok {
            st.Blacklisted = true
            stats.Blacklisted++
        }
        out = append(out, st)
    }
    return out, stats, nil
}

var (
    ErrNotFound      = errString("code not found")
    ErrEmptyBatch    = errString("no codes provided")
    ErrBatchTooLarge = errString("too many codes")
)

type errString string

func (e errString) Error() string { return string(e) }
