package domain

type SignalValue string

const (
    SignalPass    SignalValue = "pass"
    SignalFail    SignalValue = "fail"
    SignalWarning SignalValue = "warning"
    SignalUnknown SignalValue = "unknown"
)

type SignalID string

const (
    SignalDatabaseMatch       SignalID = "database_match"
    SignalBlacklistCheck      SignalID = "blacklist_check"
    SignalFormatValidation    SignalID = "format_validation"
    SignalBrandConsistency    SignalID = "brand_consistency"
    SignalEraPlausibility     SignalID = "era_plausibility"
    SignalSponsorEra          SignalID = "sponsor_era"
    SignalTechnologyTier      SignalID = "technology_tier"
    SignalLabelPosition       SignalID = "label_position"
    SignalColorSuffix         SignalID = "color_suffix"
    SignalManufacturingOrigin SignalID = "manufacturing_origin"
)

// Signal is one independent piece of evidence about a code. Treat it as a
// value: Replace returns a new Signal rather than editing the receiver.
type Signal struct {
    ID         SignalID       `json:"id"`
    Category   string         `json:"category"`
    Weight     float64        `json:"weight"`
    Confidence float64        `json:"confidence"`
    Value      SignalValue    `json:"value"`
    Evidence   string         `json:"evidence"`
    Details    map[string]any `json:"details,omitempty"`
}

// Replace keeps id, category, weight and confidence and swaps value and
// evidence. extra is merged into a copy of the details map.
func (s Signal) Replace(value SignalValue, evidence string, extra map[string]any) Signal {
    out := s
    out.Value = value
    out.Evidence = evidence
    if len(s.Details) > 0 || len(extra) > 0 {
        out.Details = make(map[string]any, len(s.Details)+len(extra))
        for k, v := range s.Details {
            out.Details[k] = v
        }
        for k, v := range extra {
            out.Details[k] = v
        }
    }
    return out
}

// Summarize reduces signals to the id/value pairs kept in the audit log.
func Summarize(signals []Signal) []SignalSummary {
    out := make([]SignalSummary, 0, len(signals))
    for _, s := range signals {
        out = append(out, SignalSummary{ID: s.ID, Value: s.Value})
    }
    return out
}
