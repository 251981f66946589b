package imaging

import (
    "context"
    "io"
    "regexp"
    "strings"

    log "github.com/sirupsen/logrus"
    "golang.org/x/text/cases"
    "golang.org/x/text/language"

    "kitcheck/internal/domain"
    "kitcheck/internal/patterns"
)

// Ordered so longer names win over their fragments ("fly emirates" before
// "emirates").
var knownSponsors = []string{
    "chevrolet", "aig", "vodafone", "sharp", "aon", "teamviewer", "snapdragon",
    "fly emirates", "emirates", "etihad", "standard chartered", "rakuten",
    "three", "yokohama", "samsung", "o2", "dreamcast", "jvc",
    "pirelli", "bwin", "beko", "spotify", "bet365", "betway", "w88", "mansion",
}

// Only fabric technologies; kit-type words like "home" or "authentic" would
// be compared against the record's technology and always miss.
var knownTechnologies = []string{
    "aeroready", "climacool", "climalite", "heat.rdy", "cold.rdy", "formotion",
    "dri-fit", "therma-fit", "vaporknit", "aeroswift", "sphere", "total 90",
}

var (
    sponsorREs    = wordMatchers(knownSponsors)
    technologyREs = wordMatchers(knownTechnologies)
    acronyms      = map[string]bool{"aig": true, "jvc": true, "o2": true, "w88": true}
)

func wordMatchers(words []string) []*regexp.Regexp {
    out := make([]*regexp.Regexp, len(words))
    for i, w := range words {
        out[i] = regexp.MustCompile(`(?i)(^|[^a-z0-9])` + regexp.QuoteMeta(w) + `($|[^a-z0-9])`)
    }
    return out
}

func firstWord(texts []string, words []string, res []*regexp.Regexp) string {
    combined := strings.Join(texts, " ")
    for i, re := range res {
        if re.MatchString(combined) {
            return words[i]
        }
    }
    return ""
}

// DetectSponsor returns the first known sponsor in texts, title-cased.
func DetectSponsor(texts []string) string {
    s := firstWord(texts, knownSponsors, sponsorREs)
    if acronyms[s] {
        return strings.ToUpper(s)
    }
    // Casers are stateful; one per call.
    return cases.Title(language.English).String(s)
}

// DetectTechnology returns the first known fabric technology in texts,
// upper-cased.
func DetectTechnology(texts []string) string {
    return strings.ToUpper(firstWord(texts, knownTechnologies, technologyREs))
}

// Analysis is everything read off one photo and its OCR fragments.
type Analysis struct {
    Format         string                   `json:"format,omitempty"`
    Color          ColorResult              `json:"color"`
    DetectedTexts  []string                 `json:"detected_texts"`
    SponsorHint    string                   `json:"sponsor_hint,omitempty"`
    TechnologyHint string                   `json:"technology_hint,omitempty"`
    ExtractedCodes []patterns.ExtractedCode `json:"extracted_codes"`
}

// Observation is the view the cross-checker consumes.
func (a Analysis) Observation() domain.VisualObservation {
    return domain.VisualObservation{
        DominantColor:   a.Color.Name,
        SponsorHint:     a.SponsorHint,
        TechnologyHint:  a.TechnologyHint,
        ColorConfidence: a.Color.Confidence,
    }
}

type Analyzer struct {
    log log.FieldLogger
}

func NewAnalyzer(logger log.FieldLogger) *Analyzer {
    if logger == nil {
        logger = log.StandardLogger()
    }
    return &Analyzer{log: logger}
}

// Analyze reads the image (if any) and the OCR texts. A nil image reader
// analyses texts only. An image that fails to decode is an error; the caller
// decides whether text-only results are still useful.
func (a *Analyzer) Analyze(ctx context.Context, image io.Reader, texts []string) (Analysis, error) {
    res := Analysis{
        DetectedTexts:  texts,
        SponsorHint:    DetectSponsor(texts),
        TechnologyHint: DetectTechnology(texts),
        ExtractedCodes: []patterns.ExtractedCode{},
    }
    seen := map[string]bool{}
    for _, t := range texts {
        for _, c := range patterns.ExtractCodes(t) {
            if !seen[c.Code] {
                seen[c.Code] = true
                res.ExtractedCodes = append(res.ExtractedCodes, c)
            }
        }
    }
    if image == nil {
        return res, nil
    }
    if err := ctx.Err(); err != nil {
        return res, err
    }

    img, format, err := DecodeImage(image)
    if err != nil {
        return res, err
    }
    res.Format = format
    if res.Color, err = DominantColor(img); err != nil {
        return res, err
    }
    a.log.WithFields(log.Fields{
        "format":     format,
        "color":      res.Color.Name,
        "confidence": res.Color.Confidence,
        "codes":      len(res.ExtractedCodes),
    }).Debug("image analysed")
    return res, nil
}
