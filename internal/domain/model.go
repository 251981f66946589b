package domain

import (
    "errors"
    "fmt"
    "regexp"
    "strings"
    "time"
)

// Core domain models used by the authentication engine. Storage rows and API
// payloads are mapped onto these in the adapters; keep them free of I/O.

type Brand string

const (
    BrandNike    Brand = "Nike"
    BrandAdidas  Brand = "Adidas"
    BrandPuma    Brand = "Puma"
    BrandUmbro   Brand = "Umbro"
    BrandUnknown Brand = "Unknown"
)

// ParseBrand maps free text onto a known brand, case-insensitively.
// Anything unrecognised is BrandUnknown.
func ParseBrand(s string) Brand {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "nike":
        return BrandNike
    case "adidas":
        return BrandAdidas
    case "puma":
        return BrandPuma
    case "umbro":
        return BrandUmbro
    }
    return BrandUnknown
}

// NormalizeCode is the single normalization every lookup keys on.
func NormalizeCode(code string) string {
    return strings.ToUpper(strings.TrimSpace(code))
}

var ErrInvalidCode = errors.New("invalid product code")

const MaxCodeLength = 32

var codeRE = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]*$`)

// ValidateCode normalizes code and rejects anything that cannot be a
// manufacturer code. Nothing should be looked up before this passes.
func ValidateCode(code string) (string, error) {
    normalized := NormalizeCode(code)
    switch {
    case normalized == "":
        return "", fmt.Errorf("%w: empty", ErrInvalidCode)
    case len(normalized) > MaxCodeLength:
        return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidCode, MaxCodeLength)
    case !codeRE.MatchString(normalized):
        return "", fmt.Errorf("%w: %q has characters outside A-Z, 0-9 and '-'", ErrInvalidCode, code)
    }
    return normalized, nil
}

// ProductCode is the reference record for a manufacturer product code.
// Optional text attributes are empty when the store has no value.
type ProductCode struct {
    ID                   string `json:"id"`
    Code                 string `json:"code"`
    Brand                string `json:"brand"`
    Team                 string `json:"team,omitempty"`
    Season               string `json:"season,omitempty"`
    KitType              string `json:"kit_type,omitempty"`
    Variant              string `json:"variant,omitempty"`
    Verified             bool   `json:"verified"`
    VerificationSource   string `json:"verification_source,omitempty"`
    PrimaryColor         string `json:"primary_color,omitempty"`
    Sponsor              string `json:"sponsor,omitempty"`
    Technology           string `json:"technology,omitempty"`
    Tier                 string `json:"tier,omitempty"`
    LabelPositionEra     string `json:"label_position_era,omitempty"`
    CountryOfManufacture string `json:"country_of_manufacture,omitempty"`
    ExpectedSuffixDigit  *int   `json:"expected_suffix_digit,omitempty"`
    LookupCount          int    `json:"lookup_count"`
}

type Severity string

const (
    SeverityHigh   Severity = "high"
    SeverityMedium Severity = "medium"
    SeverityLow    Severity = "low"
)

// BlacklistCode is a code known to be printed on counterfeit product.
type BlacklistCode struct {
    ID            string   `json:"id"`
    Code          string   `json:"code"`
    Brand         string   `json:"brand"`
    Reason        string   `json:"reason"`
    Severity      Severity `json:"severity"`
    LegitimateUse string   `json:"legitimate_use,omitempty"`
    ReportedCount int      `json:"reported_count"`
}

// AttributeKind names one time-windowed reference table.
type AttributeKind string

const (
    AttributeManufacturer        AttributeKind = "manufacturer"
    AttributeSponsor             AttributeKind = "sponsor"
    AttributeTechnology          AttributeKind = "technology"
    AttributeLabelPosition       AttributeKind = "label_position"
    AttributeManufacturingOrigin AttributeKind = "manufacturing_origin"
)

// EraWindow says Value was expected for its subject (a team or a brand) from
// StartYear up to, but not including, EndYear. A nil EndYear is open-ended.
type EraWindow struct {
    Value     string      `json:"value" yaml:"value"`
    StartYear int         `json:"start_year" yaml:"start"`
    EndYear   *int        `json:"end_year,omitempty" yaml:"end,omitempty"`
    // Tier restricts the value to one product tier (e.g. authentic-only fabric).
    Tier      string      `json:"tier,omitempty" yaml:"tier,omitempty"`
    // Mismatch overrides the evaluator's default value for an out-of-era hit.
    Mismatch  SignalValue `json:"mismatch,omitempty" yaml:"mismatch,omitempty"`
}

func (w EraWindow) Contains(year int) bool {
    if year < w.StartYear {
        return false
    }
    return w.EndYear == nil || year < *w.EndYear
}

// VisualObservation is what image analysis and OCR saw on the item.
type VisualObservation struct {
    DominantColor   string  `json:"dominant_color,omitempty"`
    SponsorHint     string  `json:"sponsor_hint,omitempty"`
    TechnologyHint  string  `json:"technology_hint,omitempty"`
    Brand           string  `json:"brand,omitempty"`
    KitType         string  `json:"kit_type,omitempty"`
    // ColorConfidence is 0-100. Zero means the caller did not measure it.
    ColorConfidence float64 `json:"color_confidence,omitempty"`
}

type VerificationResult struct {
    Code                 string         `json:"code"`
    NormalizedCode       string         `json:"normalized_code"`
    Verdict              Verdict        `json:"verdict"`
    ConfidenceScore      int            `json:"confidence_score"`
    InsufficientEvidence bool           `json:"insufficient_evidence"`
    Signals              []Signal       `json:"signals"`
    MatchedProduct       *ProductCode   `json:"matched_product"`
    BlacklistMatch       *BlacklistCode `json:"blacklist_match"`
    Recommendation       string         `json:"recommendation"`
    Timestamp            time.Time      `json:"timestamp"`
}

// VerificationLogEntry is the compact audit record written after each call.
type VerificationLogEntry struct {
    Code            string
    BrandFilter     string
    Verdict         Verdict
    ConfidenceScore int
    Signals         []SignalSummary
    CheckedAt       time.Time
}

type SignalSummary struct {
    ID    SignalID    `json:"id"`
    Value SignalValue `json:"value"`
}
