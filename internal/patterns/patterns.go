// Package patterns classifies manufacturer product codes by brand and checks
// them against each brand's known code formats.
package patterns

import (
    "regexp"

    "kitcheck/internal/domain"
)

type brandPatterns struct {
    brand    domain.Brand
    patterns []*regexp.Regexp
}

// Brand order matters: a pure six-digit code is Nike before it is Umbro.
// Every pattern is anchored so an embedded code never counts as a match.
var library = []brandPatterns{
    {domain.BrandNike, []*regexp.Regexp{
        regexp.MustCompile(`^[A-Z]{2}\d{4}-\d{3}$`), // CZ3984-100
        regexp.MustCompile(`^\d{6}-\d{3}$`),         // 638920-013
        regexp.MustCompile(`^\d{6}$`),               // 118834, 2002-2006
    }},
    {domain.BrandAdidas, []*regexp.Regexp{
        regexp.MustCompile(`^[A-Z]{2}\d{4}$`), // IS7462
        regexp.MustCompile(`^[A-Z]\d{5}$`),    // M36158
        regexp.MustCompile(`^[A-Z]{2}\d{5}$`), // IT97851
    }},
    {domain.BrandPuma, []*regexp.Regexp{
        regexp.MustCompile(`^\d{6}-\d{2}$`), // 736251-01
    }},
    {domain.BrandUmbro, []*regexp.Regexp{
        regexp.MustCompile(`^\d{5}-U$`), // 96281-U
        regexp.MustCompile(`^\d{5,6}$`),
    }},
}

var legacyNike = regexp.MustCompile(`^\d{6}-\d{3}$`)

// DetectBrand returns the first brand owning a pattern that matches the
// normalized code, or BrandUnknown.
func DetectBrand(code string) domain.Brand {
    normalized := domain.NormalizeCode(code)
    for _, bp := range library {
        for _, p := range bp.patterns {
            if p.MatchString(normalized) {
                return bp.brand
            }
        }
    }
    return domain.BrandUnknown
}

// HasPatterns reports whether the library knows any format for brand.
func HasPatterns(brand domain.Brand) bool {
    return len(Patterns(brand)) > 0
}

// Patterns returns the ordered formats for brand; nil for an unknown brand.
func Patterns(brand domain.Brand) []*regexp.Regexp {
    for _, bp := range library {
        if bp.brand == brand {
            return bp.patterns
        }
    }
    return nil
}

// IsValidFormat reports whether code fully matches one of brand's formats.
func IsValidFormat(code string, brand domain.Brand) bool {
    normalized := domain.NormalizeCode(code)
    for _, p := range Patterns(brand) {
        if p.MatchString(normalized) {
            return true
        }
    }
    return false
}

// IsLegacyNike reports the six-digit, three-digit-suffix form whose suffix
// encodes the colourway.
func IsLegacyNike(code string) bool {
    return legacyNike.MatchString(domain.NormalizeCode(code))
}
