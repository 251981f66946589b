package verifier

import (
    "fmt"
    "strings"

    "kitcheck/internal/domain"
    "kitcheck/internal/scoring"
)

// VisualAttribute is something image analysis can observe on a shirt.
type VisualAttribute string

const (
    VisualColor      VisualAttribute = "color"
    VisualSponsor    VisualAttribute = "sponsor"
    VisualTechnology VisualAttribute = "technology"
    VisualBrand      VisualAttribute = "brand"
    VisualKitType    VisualAttribute = "kit_type"
)

var visualAttributes = []VisualAttribute{VisualColor, VisualSponsor, VisualTechnology, VisualBrand, VisualKitType}

// minColorConfidence is the colour confidence an observation needs before it
// can override the code-based colour check. An observation that reports no
// confidence is taken at its word.
const minColorConfidence = 40

// AttributeCheck is the mini-verdict for one observed attribute.
type AttributeCheck struct {
    Attribute VisualAttribute
    Target    domain.SignalID
    Value     domain.SignalValue
    Evidence  string
}

// CrossChecker compares visual observations with the matched record and
// folds the outcome into the signal each attribute targets.
type CrossChecker struct {
    targets map[VisualAttribute]domain.SignalID
}

// NewCrossChecker validates the attribute to signal mapping. Every attribute
// needs a target, targets must carry a weight, and no two attributes may
// share one.
func NewCrossChecker(targets map[VisualAttribute]domain.SignalID) (*CrossChecker, error) {
    seen := make(map[domain.SignalID]VisualAttribute, len(targets))
    out := make(map[VisualAttribute]domain.SignalID, len(targets))
    for _, attr := range visualAttributes {
        id, ok := targets[attr]
        if !ok {
            return nil, fmt.Errorf("cross-check: no target signal for %s", attr)
        }
        if !scoring.Known(id) {
            return nil, fmt.Errorf("cross-check: %s targets unknown signal %q", attr, id)
        }
        if prev, dup := seen[id]; dup {
            return nil, fmt.Errorf("cross-check: %s and %s both target %q", prev, attr, id)
        }
        seen[id] = attr
        out[attr] = id
    }
    for attr := range targets {
        if _, ok := out[attr]; !ok {
            return nil, fmt.Errorf("cross-check: unsupported attribute %q", attr)
        }
    }
    return &CrossChecker{targets: out}, nil
}

// DefaultCrossChecker maps colour to the suffix check, sponsor to the sponsor
// era and technology to the technology tier. A visible brand speaks to brand
// consistency; a kit type the record does not describe puts the database
// match itself in doubt.
func DefaultCrossChecker() *CrossChecker {
    c, err := NewCrossChecker(map[VisualAttribute]domain.SignalID{
        VisualColor:      domain.SignalColorSuffix,
        VisualSponsor:    domain.SignalSponsorEra,
        VisualTechnology: domain.SignalTechnologyTier,
        VisualBrand:      domain.SignalBrandConsistency,
        VisualKitType:    domain.SignalDatabaseMatch,
    })
    if err != nil {
        panic(err)
    }
    return c
}

// Target reports the signal an attribute feeds.
func (c *CrossChecker) Target(attr VisualAttribute) domain.SignalID { return c.targets[attr] }

// Compare produces one check per attribute. Anything that cannot be compared
// is unknown.
func (c *CrossChecker) Compare(product *domain.ProductCode, obs domain.VisualObservation) []AttributeCheck {
    var stored domain.ProductCode
    if product != nil {
        stored = *product
    }
    matched := product != nil

    color := c.check(VisualColor, stored.PrimaryColor, obs.DominantColor, matched, colorMatch)
    if color.Value != domain.SignalUnknown && obs.ColorConfidence > 0 && obs.ColorConfidence <= minColorConfidence {
        color.Value = domain.SignalUnknown
        color.Evidence = fmt.Sprintf("Colour detection confidence %.0f%% too low to compare", obs.ColorConfidence)
    }
    return []AttributeCheck{
        color,
        c.check(VisualSponsor, stored.Sponsor, obs.SponsorHint, matched, visualMatch),
        c.check(VisualTechnology, stored.Technology, obs.TechnologyHint, matched, visualMatch),
        c.check(VisualBrand, stored.Brand, obs.Brand, matched, strings.EqualFold),
        c.check(VisualKitType, stored.KitType, obs.KitType, matched, kitTypeMatch),
    }
}

func (c *CrossChecker) check(attr VisualAttribute, expected, observed string, matched bool, match func(observed, expected string) bool) AttributeCheck {
    ac := AttributeCheck{Attribute: attr, Target: c.targets[attr], Value: domain.SignalUnknown}
    observed, expected = strings.TrimSpace(observed), strings.TrimSpace(expected)
    switch {
    case observed == "":
        ac.Evidence = fmt.Sprintf("No %s observed", attr)
    case !matched:
        ac.Evidence = fmt.Sprintf("No database record to compare %s against", attr)
    case expected == "":
        ac.Evidence = fmt.Sprintf("Database record has no %s", attr)
    case match(observed, expected):
        ac.Value = domain.SignalPass
        ac.Evidence = fmt.Sprintf("Visual %s %q matches database (%s)", attr, observed, expected)
    default:
        ac.Value = domain.SignalFail
        ac.Evidence = fmt.Sprintf("VISUAL MISMATCH: observed %s %q but database says %q", attr, observed, expected)
    }
    return ac
}

func visualMatch(observed, expected string) bool {
    o, e := squash(observed), squash(expected)
    if o == "" || e == "" {
        return false
    }
    return strings.Contains(o, e) || strings.Contains(e, o)
}

// colorMatch also accepts shades of one family, so "scarlet" matches "red".
func colorMatch(observed, expected string) bool {
    return visualMatch(observed, expected) || domain.SameColorFamily(observed, expected)
}

// kitTypeMatch accepts either name inside the other ("home" and "Home Authentic").
func kitTypeMatch(observed, expected string) bool {
    o, e := strings.ToLower(observed), strings.ToLower(expected)
    return strings.Contains(o, e) || strings.Contains(e, o)
}

// squash lowercases and drops separators so "Royal Blue", "royal_blue" and
// "royal-blue" compare equal.
func squash(s string) string {
    return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

// Apply folds conclusive checks into the signals they target. Only existing
// signals change; a check whose target is absent is dropped.
func (c *CrossChecker) Apply(signals []domain.Signal, checks []AttributeCheck) []domain.Signal {
    out := make([]domain.Signal, len(signals))
    copy(out, signals)
    for _, ac := range checks {
        if ac.Value == domain.SignalUnknown {
            continue
        }
        for i := range out {
            if out[i].ID == ac.Target {
                out[i] = out[i].Replace(ac.Value, ac.Evidence, map[string]any{
                    "visual_check": true,
                    "attribute":    string(ac.Attribute),
                })
                break
            }
        }
    }
    return out
}
