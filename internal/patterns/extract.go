package patterns

import (
    "regexp"
    "sort"
    "strings"
    "unicode"

    "kitcheck/internal/domain"
)

// ExtractedCode is a product code found in OCR output.
type ExtractedCode struct {
    Code       string       `json:"code"`
    Brand      domain.Brand `json:"brand"`
    Confidence float64      `json:"confidence"`
}

const extractedConfidence = 0.9

// Word-bounded forms of the library. Bare digit runs are left out: on a
// care label they are far more often sizes, dates or batch numbers.
var extractors = []*regexp.Regexp{
    regexp.MustCompile(`\b[A-Z]{2}\d{4}-\d{3}\b`),
    regexp.MustCompile(`\b\d{6}-\d{3}\b`),
    regexp.MustCompile(`\b[A-Z]{2}\d{4,5}\b`),
    regexp.MustCompile(`\b[A-Z]\d{5}\b`),
    regexp.MustCompile(`\b\d{6}-\d{2}\b`),
    regexp.MustCompile(`\b\d{5}-U\b`),
}

type span struct{ start, end int }

// ExtractCodes pulls every distinct product code out of raw OCR text.
// Overlapping candidates resolve to the longest one.
func ExtractCodes(text string) []ExtractedCode {
    cleaned := normalizeOCR(text)

    var candidates []span
    for _, re := range extractors {
        for _, loc := range re.FindAllStringIndex(cleaned, -1) {
            candidates = append(candidates, span{loc[0], loc[1]})
        }
    }
    sort.SliceStable(candidates, func(i, j int) bool {
        li, lj := candidates[i].end-candidates[i].start, candidates[j].end-candidates[j].start
        if li != lj {
            return li > lj
        }
        return candidates[i].start < candidates[j].start
    })

    var taken []span
    for _, c := range candidates {
        if !overlaps(taken, c) {
            taken = append(taken, c)
        }
    }
    // report in reading order
    sort.Slice(taken, func(i, j int) bool { return taken[i].start < taken[j].start })

    seen := map[string]bool{}
    var out []ExtractedCode
    for _, c := range taken {
        code := cleaned[c.start:c.end]
        if seen[code] {
            continue
        }
        seen[code] = true
        out = append(out, ExtractedCode{Code: code, Brand: DetectBrand(code), Confidence: extractedConfidence})
    }
    return out
}

func overlaps(taken []span, c span) bool {
    for _, t := range taken {
        if c.start < t.end && t.start < c.end {
            return true
        }
    }
    return false
}

// normalizeOCR uppercases, collapses whitespace and repairs the usual
// letter-for-digit misreads (O→0, I/L→1) where a digit run is under way.
func normalizeOCR(text string) string {
    upper := strings.Join(strings.Fields(strings.ToUpper(text)), " ")
    runes := []rune(upper)
    for i, r := range runes {
        if r != 'O' && r != 'I' && r != 'L' {
            continue
        }
        if !inDigitRun(runes, i) {
            continue
        }
        if r == 'O' {
            runes[i] = '0'
        } else {
            runes[i] = '1'
        }
    }
    return string(runes)
}

func inDigitRun(runes []rune, i int) bool {
    if i == 0 {
        return false
    }
    prev := runes[i-1]
    if unicode.IsDigit(prev) {
        return true
    }
    return prev == '-' && i >= 2 && unicode.IsDigit(runes[i-2])
}
