package domain

type Verdict string

const (
    VerdictHighlyLikelyAuthentic Verdict = "highly_likely_authentic"
    VerdictProbablyAuthentic     Verdict = "probably_authentic"
    VerdictUncertain             Verdict = "uncertain"
    VerdictSuspicious            Verdict = "suspicious"
    VerdictLikelyFake            Verdict = "likely_fake"
    VerdictBlacklisted           Verdict = "blacklisted"
)

var verdictLabels = map[Verdict]string{
    VerdictHighlyLikelyAuthentic: "Highly Likely Authentic",
    VerdictProbablyAuthentic:     "Probably Authentic",
    VerdictUncertain:             "Uncertain",
    VerdictSuspicious:            "Suspicious",
    VerdictLikelyFake:            "Likely Fake",
    VerdictBlacklisted:           "Known Counterfeit",
}

// Label is the display name shown next to a result.
func (v Verdict) Label() string {
    if l, ok := verdictLabels[v]; ok {
        return l
    }
    return string(v)
}

// APIVerdict collapses the six verdicts onto the five the public API reports.
func (v Verdict) APIVerdict() string {
    switch v {
    case VerdictHighlyLikelyAuthentic:
        return "authentic"
    case VerdictProbablyAuthentic:
        return "likely_authentic"
    case VerdictSuspicious:
        return "suspicious"
    case VerdictLikelyFake, VerdictBlacklisted:
        return "fake"
    }
    return "uncertain"
}
