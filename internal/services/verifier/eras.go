package verifier

import (
    "context"
    "fmt"
    "regexp"
    "strconv"
    "strings"

    "kitcheck/internal/domain"
    "kitcheck/internal/patterns"
)

var seasonYearRE = regexp.MustCompile(`\d{4}`)

// seasonYear takes the first four-digit year out of a season label,
// so "2007/08" is 2007.
func seasonYear(season string) (int, bool) {
    m := seasonYearRE.FindString(season)
    if m == "" {
        return 0, false
    }
    y, err := strconv.Atoi(m)
    return y, err == nil
}

type matchFunc func(actual, expected string) bool

func exactMatch(actual, expected string) bool {
    return strings.EqualFold(strings.TrimSpace(actual), strings.TrimSpace(expected))
}

// containsMatch accepts either string containing the other.
func containsMatch(actual, expected string) bool {
    a := strings.ToLower(strings.TrimSpace(actual))
    e := strings.ToLower(strings.TrimSpace(expected))
    if a == "" || e == "" {
        return false
    }
    return strings.Contains(a, e) || strings.Contains(e, a)
}

// eraRule describes one member of the era-consistency family.
type eraRule struct {
    id       domain.SignalID
    category string
    kind     domain.AttributeKind
    match    matchFunc

    passConfidence     float64
    mismatchValue      domain.SignalValue
    mismatchConfidence float64

    // noWindowConfidence > 0 turns "reference exists but nothing covers the
    // year" into an unknown signal instead of no signal.
    noWindowConfidence float64
    // unlistedConfidence > 0 reports an attribute value the reference has
    // never heard of as unknown instead of as a mismatch.
    unlistedConfidence float64

    passText     func(in eraInput, year int) string
    mismatchText func(in eraInput, year int, expected []string) string
}

type eraInput struct {
    subject string
    actual  string
    tier    string
}

var (
    manufacturerRule = eraRule{
        id: domain.SignalEraPlausibility, category: "Historical Validation",
        kind: domain.AttributeManufacturer, match: exactMatch,
        passConfidence: 0.95, mismatchValue: domain.SignalFail, mismatchConfidence: 1.0,
        noWindowConfidence: 0.7,
        passText: func(in eraInput, year int) string {
            return fmt.Sprintf("%s was the official manufacturer for %s in %d", in.actual, in.subject, year)
        },
        mismatchText: func(in eraInput, year int, expected []string) string {
            return fmt.Sprintf("HISTORICAL IMPOSSIBILITY: %s was made by %s in %d, not %s",
                in.subject, strings.Join(expected, "/"), year, in.actual)
        },
    }

    sponsorRule = eraRule{
        id: domain.SignalSponsorEra, category: "Sponsor Era Check",
        kind: domain.AttributeSponsor, match: containsMatch,
        passConfidence: 0.95, mismatchValue: domain.SignalFail, mismatchConfidence: 1.0,
        passText: func(in eraInput, year int) string {
            return fmt.Sprintf("Sponsor %s matches %s's sponsor for %d", in.actual, in.subject, year)
        },
        mismatchText: func(in eraInput, year int, expected []string) string {
            return fmt.Sprintf("SPONSOR MISMATCH: %s had %s in %d, not %s",
                in.subject, strings.Join(expected, "/"), year, in.actual)
        },
    }

    technologyRule = eraRule{
        id: domain.SignalTechnologyTier, category: "Technology Tier Check",
        kind: domain.AttributeTechnology, match: containsMatch,
        passConfidence: 0.95, mismatchValue: domain.SignalFail, mismatchConfidence: 0.85,
        unlistedConfidence: 0.5,
        passText: func(in eraInput, year int) string {
            return fmt.Sprintf("%s technology matches %s %d era", in.actual, in.subject, year)
        },
        mismatchText: func(in eraInput, year int, expected []string) string {
            return fmt.Sprintf("TECH MISMATCH: a %d %s kit would use %s, not %s",
                year, in.subject, strings.Join(expected, "/"), in.actual)
        },
    }

    labelPositionRule = eraRule{
        id: domain.SignalLabelPosition, category: "Label Position Era",
        kind: domain.AttributeLabelPosition, match: exactMatch,
        passConfidence: 0.9, mismatchValue: domain.SignalWarning, mismatchConfidence: 0.8,
        passText: func(in eraInput, year int) string {
            return fmt.Sprintf("Label position %s matches %s %d manufacturing standard", in.actual, in.subject, year)
        },
        mismatchText: func(in eraInput, year int, expected []string) string {
            return fmt.Sprintf("Label position mismatch: %d %s kits typically have %s, not %s",
                year, in.subject, strings.Join(expected, "/"), in.actual)
        },
    }

    originRule = eraRule{
        id: domain.SignalManufacturingOrigin, category: "Manufacturing Origin",
        kind: domain.AttributeManufacturingOrigin, match: containsMatch,
        passConfidence: 0.9, mismatchValue: domain.SignalWarning, mismatchConfidence: 0.75,
        noWindowConfidence: 0.5,
        passText: func(in eraInput, year int) string {
            return fmt.Sprintf("%s is a valid manufacturing origin for %s %d", in.actual, in.subject, year)
        },
        mismatchText: func(in eraInput, year int, expected []string) string {
            return fmt.Sprintf("%s %d kits were typically made in %s, not %s",
                in.subject, year, strings.Join(expected, ", "), in.actual)
        },
    }
)

// evaluateEra runs one era rule. It returns nil when the rule does not apply:
// no attribute, no parsable season, or no reference table for the subject.
func (s *Service) evaluateEra(ctx context.Context, rule eraRule, in eraInput, season string) *domain.Signal {
    if strings.TrimSpace(in.subject) == "" || strings.TrimSpace(in.actual) == "" {
        return nil
    }
    year, ok := seasonYear(season)
    if !ok {
        return nil
    }

    lookupCtx, cancel := s.lookupContext(ctx)
    windows, err := s.eras.EraWindows(lookupCtx, in.subject, rule.kind)
    cancel()
    if err != nil {
        s.log.WithField("kind", rule.kind).Warnf("era reference lookup failed: %v", err)
        return nil
    }
    if len(windows) == 0 {
        return nil
    }

    var covering []domain.EraWindow
    for _, w := range windows {
        if w.Contains(year) {
            covering = append(covering, w)
        }
    }
    if len(covering) == 0 {
        if rule.noWindowConfidence <= 0 {
            return nil
        }
        sig := newSignal(rule.id, rule.category, domain.SignalUnknown, rule.noWindowConfidence,
            fmt.Sprintf("No %s era data found for %s in %d", rule.kind, in.subject, year))
        return &sig
    }

    for _, w := range covering {
        if !rule.match(in.actual, w.Value) {
            continue
        }
        if w.Tier != "" && !strings.EqualFold(w.Tier, in.tier) {
            tier := in.tier
            if tier == "" {
                tier = "replica"
            }
            sig := newSignal(rule.id, rule.category, domain.SignalWarning, 0.9,
                fmt.Sprintf("%s is only used on %s tier shirts, not %s", w.Value, w.Tier, tier))
            return &sig
        }
        sig := newSignal(rule.id, rule.category, domain.SignalPass, rule.passConfidence, rule.passText(in, year))
        return &sig
    }

    value := rule.mismatchValue
    listed := findWindow(windows, in.actual, rule.match)
    if listed == nil && rule.unlistedConfidence > 0 {
        sig := newSignal(rule.id, rule.category, domain.SignalUnknown, rule.unlistedConfidence,
            fmt.Sprintf("%s is not in the %s %s reference", in.actual, in.subject, rule.kind))
        return &sig
    }
    // Only fail and warning may override; anything else a store hands back
    // keeps the rule's default.
    if listed != nil && (listed.Mismatch == domain.SignalFail || listed.Mismatch == domain.SignalWarning) {
        value = listed.Mismatch
    }

    expected := make([]string, 0, len(covering))
    for _, w := range covering {
        expected = append(expected, w.Value)
    }
    sig := newSignal(rule.id, rule.category, value, rule.mismatchConfidence, rule.mismatchText(in, year, expected))
    sig.Details = map[string]any{"expected": expected, "season_year": year}
    return &sig
}

func findWindow(windows []domain.EraWindow, actual string, match matchFunc) *domain.EraWindow {
    for i := range windows {
        if match(actual, windows[i].Value) {
            return &windows[i]
        }
    }
    return nil
}

// colorSuffixSignal checks the first digit of a legacy Nike suffix against
// the digit the catalogue expects. Without an explicit digit the record's
// primary colour is looked up in the suffix table.
func (s *Service) colorSuffixSignal(code string, product domain.ProductCode) *domain.Signal {
    if !patterns.IsLegacyNike(code) {
        return nil
    }
    suffix := code[strings.IndexByte(code, '-')+1:]
    actual := int(suffix[0] - '0')

    var expected int
    source := "database"
    switch {
    case product.ExpectedSuffixDigit != nil:
        expected = *product.ExpectedSuffixDigit
    case product.PrimaryColor != "" && s.colors != nil:
        d, ok := s.colors.DigitForColor(product.PrimaryColor)
        if !ok {
            return nil
        }
        expected, source = d, "colour table"
    default:
        return nil
    }

    color := product.PrimaryColor
    if color == "" {
        color = "this kit colour"
    }
    details := map[string]any{"suffix": suffix, "expected_digit": expected, "source": source}
    if actual != expected {
        sig := newSignal(domain.SignalColorSuffix, "Color Suffix Validation", domain.SignalFail, 0.95,
            fmt.Sprintf("COLOR CODE MISMATCH: suffix %s starts with %d but %s expects %d for %s",
                suffix, actual, source, expected, color))
        sig.Details = details
        return &sig
    }
    sig := newSignal(domain.SignalColorSuffix, "Color Suffix Validation", domain.SignalPass, 0.95,
        fmt.Sprintf("Color suffix %s verified: digit %d matches expected for %s", suffix, actual, color))
    sig.Details = details
    return &sig
}
