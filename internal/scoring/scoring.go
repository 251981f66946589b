// Package scoring turns a list of signals into a 0-100 confidence score and a
// verdict. Everything here is pure and deterministic.
package scoring

import (
    "math"

    "kitcheck/internal/domain"
)

// Weights is fixed per signal id and sums to 100.
var Weights = map[domain.SignalID]float64{
    domain.SignalDatabaseMatch:       25,
    domain.SignalBlacklistCheck:      20,
    domain.SignalFormatValidation:    15,
    domain.SignalBrandConsistency:    8,
    domain.SignalEraPlausibility:     5,
    domain.SignalSponsorEra:          8,
    domain.SignalTechnologyTier:      7,
    domain.SignalLabelPosition:       4,
    domain.SignalColorSuffix:         5,
    domain.SignalManufacturingOrigin: 3,
}

// Weight returns the table weight for id, 0 if the id is not scored.
func Weight(id domain.SignalID) float64 { return Weights[id] }

// Known reports whether id has a weight.
func Known(id domain.SignalID) bool {
    _, ok := Weights[id]
    return ok
}

const (
    ThresholdHighlyLikelyAuthentic = 90
    ThresholdProbablyAuthentic     = 70
    ThresholdUncertain             = 50
    ThresholdSuspicious            = 30

    // NeutralScore is reported when no signal carries evidence.
    NeutralScore = 50
)

func valueScore(v domain.SignalValue) float64 {
    switch v {
    case domain.SignalPass:
        return 1
    case domain.SignalWarning:
        return 0.5
    }
    return 0
}

// Score is the confidence-weighted mean of the non-unknown signals, scaled
// to 0-100 and rounded. Unknown signals count for nothing either way.
func Score(signals []domain.Signal) int {
    var weighted, total float64
    for _, s := range signals {
        if s.Value == domain.SignalUnknown {
            continue
        }
        effective := s.Weight * s.Confidence
        weighted += valueScore(s.Value) * effective
        total += effective
    }
    if total <= 0 || math.IsNaN(total) {
        return NeutralScore
    }
    score := int(math.Round(weighted / total * 100))
    if score < 0 {
        return 0
    }
    if score > 100 {
        return 100
    }
    return score
}

// HasEvidence is false when every signal is unknown (or carries no weight),
// i.e. when Score fell back to NeutralScore for lack of data.
func HasEvidence(signals []domain.Signal) bool {
    for _, s := range signals {
        if s.Value != domain.SignalUnknown && s.Weight*s.Confidence > 0 {
            return true
        }
    }
    return false
}

// Classify maps a score onto a verdict. A blacklist match wins outright.
func Classify(score int, blacklisted bool) domain.Verdict {
    switch {
    case blacklisted:
        return domain.VerdictBlacklisted
    case score >= ThresholdHighlyLikelyAuthentic:
        return domain.VerdictHighlyLikelyAuthentic
    case score >= ThresholdProbablyAuthentic:
        return domain.VerdictProbablyAuthentic
    case score >= ThresholdUncertain:
        return domain.VerdictUncertain
    case score >= ThresholdSuspicious:
        return domain.VerdictSuspicious
    }
    return domain.VerdictLikelyFake
}

var recommendations = map[domain.Verdict]string{
    domain.VerdictHighlyLikelyAuthentic: "This code strongly indicates an authentic product. Proceed with confidence.",
    domain.VerdictProbablyAuthentic:     "This code appears legitimate. Consider additional visual checks for high-value items.",
    domain.VerdictUncertain:             "We cannot definitively verify this code. Recommend additional authentication methods.",
    domain.VerdictSuspicious:            "Several warning signs detected. Exercise caution and consider expert verification.",
    domain.VerdictLikelyFake:            "Multiple indicators suggest this may be counterfeit. Strongly recommend avoiding purchase.",
    domain.VerdictBlacklisted:           "This code is known to be used on counterfeit products. Do not purchase.",
}

func Recommendation(v domain.Verdict) string {
    return recommendations[v]
}
