package verifier

import (
    "fmt"
    "strings"

    "kitcheck/internal/domain"
    "kitcheck/internal/patterns"
    "kitcheck/internal/scoring"
)

// Confidence attached to each outcome. A database miss stays below an
// unverified hit: absence says the catalogue is incomplete, not that the code
// is bad.
const (
    confDatabaseVerified   = 1.0
    confDatabaseUnverified = 0.7
    confDatabaseMissing    = 0.6

    confBlacklistHit     = 1.0
    confBlacklistClear   = 0.95
    confBlacklistUnknown = 0.5

    confFormatValid   = 0.95
    confFormatInvalid = 0.3
    confFormatUnknown = 0.5

    confBrandNoFilter = 0.8
    confBrandMatch    = 0.95
    confBrandMismatch = 0.4
)

func newSignal(id domain.SignalID, category string, value domain.SignalValue, confidence float64, evidence string) domain.Signal {
    return domain.Signal{
        ID:         id,
        Category:   category,
        Weight:     scoring.Weight(id),
        Confidence: confidence,
        Value:      value,
        Evidence:   evidence,
    }
}

// databaseSignal scores the catalogue lookup. lookupErr means the store could
// not answer; that is reported like a miss with the failure in details.
func databaseSignal(product *domain.ProductCode, lookupErr error) domain.Signal {
    if product == nil {
        s := newSignal(domain.SignalDatabaseMatch, "Database Match", domain.SignalUnknown, confDatabaseMissing,
            "Code not found in our verified database")
        if lookupErr != nil {
            s.Evidence = "Verified database unavailable; code could not be checked"
            s.Details = map[string]any{"lookup_error": lookupErr.Error()}
        }
        return s
    }
    conf := confDatabaseUnverified
    if product.Verified {
        conf = confDatabaseVerified
    }
    s := newSignal(domain.SignalDatabaseMatch, "Database Match", domain.SignalPass, conf,
        describeProduct(*product))
    s.Details = map[string]any{
        "team":     product.Team,
        "season":   product.Season,
        "kit_type": product.KitType,
        "verified": product.Verified,
        "source":   product.VerificationSource,
    }
    return s
}

func describeProduct(p domain.ProductCode) string {
    parts := []string{"Matches", p.Brand}
    for _, v := range []string{p.Team, p.Season, p.KitType} {
        if v != "" {
            parts = append(parts, v)
        }
    }
    return strings.Join(parts, " ")
}

func blacklistSignal(entry *domain.BlacklistCode, lookupErr error) domain.Signal {
    switch {
    case entry != nil:
        s := newSignal(domain.SignalBlacklistCheck, "Blacklist Check", domain.SignalFail, confBlacklistHit,
            "BLACKLISTED: "+entry.Reason)
        s.Details = map[string]any{
            "severity":       string(entry.Severity),
            "legitimate_use": entry.LegitimateUse,
        }
        return s
    case lookupErr != nil:
        s := newSignal(domain.SignalBlacklistCheck, "Blacklist Check", domain.SignalUnknown, confBlacklistUnknown,
            "Blacklist unavailable; code could not be checked")
        s.Details = map[string]any{"lookup_error": lookupErr.Error()}
        return s
    }
    return newSignal(domain.SignalBlacklistCheck, "Blacklist Check", domain.SignalPass, confBlacklistClear,
        "Code not found on known fake codes blacklist")
}

func formatSignal(code string, brand domain.Brand) domain.Signal {
    if !patterns.HasPatterns(brand) {
        return newSignal(domain.SignalFormatValidation, "Code Format", domain.SignalUnknown, confFormatUnknown,
            fmt.Sprintf("Unknown brand %q - cannot validate format", brand))
    }
    if patterns.IsValidFormat(code, brand) {
        return newSignal(domain.SignalFormatValidation, "Code Format", domain.SignalPass, confFormatValid,
            fmt.Sprintf("Code %q matches %s format pattern", code, brand))
    }
    return newSignal(domain.SignalFormatValidation, "Code Format", domain.SignalWarning, confFormatInvalid,
        fmt.Sprintf("Code %q does not match expected %s format", code, brand))
}

// hasBrandFilter treats "" and "all" as no filter.
func hasBrandFilter(filter string) bool {
    f := strings.TrimSpace(filter)
    return f != "" && !strings.EqualFold(f, "all")
}

func brandConsistencySignal(detected domain.Brand, filter string, matchedBrand string) domain.Signal {
    if !hasBrandFilter(filter) {
        return newSignal(domain.SignalBrandConsistency, "Brand Consistency", domain.SignalPass, confBrandNoFilter,
            "No brand filter applied")
    }
    filter = strings.TrimSpace(filter)
    actual := string(detected)
    if matchedBrand != "" {
        actual = matchedBrand
    }
    if strings.EqualFold(actual, filter) {
        return newSignal(domain.SignalBrandConsistency, "Brand Consistency", domain.SignalPass, confBrandMatch,
            fmt.Sprintf("Brand matches selected filter (%s)", filter))
    }
    return newSignal(domain.SignalBrandConsistency, "Brand Consistency", domain.SignalWarning, confBrandMismatch,
        fmt.Sprintf("Brand mismatch: expected %s, detected %s", filter, actual))
}

// effectiveBrand prefers the catalogue's brand over the one read off the code.
func effectiveBrand(detected domain.Brand, product *domain.ProductCode) domain.Brand {
    if product != nil && product.Brand != "" {
        if b := domain.ParseBrand(product.Brand); b != domain.BrandUnknown {
            return b
        }
        return domain.Brand(product.Brand)
    }
    return detected
}
