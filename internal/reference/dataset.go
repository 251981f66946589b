// Package reference holds the era reference data the evaluators check
// product attributes against, and the lookup that layers the bundled defaults
// beneath the reference store.
package reference

import (
    "context"
    _ "embed"
    "fmt"
    "os"
    "sort"
    "strings"

    "gopkg.in/yaml.v3"

    "kitcheck/internal/domain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type eraKey struct {
    subject string
    kind    domain.AttributeKind
}

// Dataset is an immutable, in-memory set of era tables.
type Dataset struct {
    eras        map[eraKey][]domain.EraWindow
    colorDigits map[int][]string
}

type fileFormat struct {
    Eras []struct {
        Subject string               `yaml:"subject"`
        Kind    domain.AttributeKind `yaml:"kind"`
        Windows []domain.EraWindow   `yaml:"windows"`
    } `yaml:"eras"`
    ColorSuffixDigits map[int][]string `yaml:"color_suffix_digits"`
}

var knownKinds = map[domain.AttributeKind]bool{
    domain.AttributeManufacturer:        true,
    domain.AttributeSponsor:             true,
    domain.AttributeTechnology:          true,
    domain.AttributeLabelPosition:       true,
    domain.AttributeManufacturingOrigin: true,
}

// Defaults parses the bundled dataset.
func Defaults() (*Dataset, error) {
    return Parse(defaultsYAML)
}

// LoadDefaults returns the bundled dataset, overlaid with the file at path
// when path is non-empty. A subject/kind present in the file replaces the
// bundled table wholesale.
func LoadDefaults(path string) (*Dataset, error) {
    ds, err := Defaults()
    if err != nil {
        return nil, fmt.Errorf("bundled reference data: %w", err)
    }
    if path == "" {
        return ds, nil
    }
    raw, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("read reference data: %w", err)
    }
    overlay, err := Parse(raw)
    if err != nil {
        return nil, fmt.Errorf("parse %s: %w", path, err)
    }
    for k, v := range overlay.eras {
        ds.eras[k] = v
    }
    for d, colors := range overlay.colorDigits {
        ds.colorDigits[d] = colors
    }
    return ds, nil
}

// Parse decodes and validates a dataset document.
func Parse(data []byte) (*Dataset, error) {
    var f fileFormat
    if err := yaml.Unmarshal(data, &f); err != nil {
        return nil, err
    }
    ds := &Dataset{eras: map[eraKey][]domain.EraWindow{}, colorDigits: map[int][]string{}}
    for _, e := range f.Eras {
        if strings.TrimSpace(e.Subject) == "" {
            return nil, fmt.Errorf("era table without subject")
        }
        if !knownKinds[e.Kind] {
            return nil, fmt.Errorf("%s: unknown attribute kind %q", e.Subject, e.Kind)
        }
        for _, w := range e.Windows {
            if err := validateWindow(w); err != nil {
                return nil, fmt.Errorf("%s/%s: %w", e.Subject, e.Kind, err)
            }
        }
        key := eraKey{subject: subjectKey(e.Subject), kind: e.Kind}
        windows := append(ds.eras[key], e.Windows...)
        sort.SliceStable(windows, func(i, j int) bool { return windows[i].StartYear < windows[j].StartYear })
        ds.eras[key] = windows
    }
    for d, colors := range f.ColorSuffixDigits {
        if d < 0 || d > 9 {
            return nil, fmt.Errorf("color suffix digit %d out of range", d)
        }
        normalized := make([]string, 0, len(colors))
        for _, c := range colors {
            normalized = append(normalized, NormalizeColor(c))
        }
        ds.colorDigits[d] = normalized
    }
    return ds, nil
}

func validateWindow(w domain.EraWindow) error {
    if strings.TrimSpace(w.Value) == "" {
        return fmt.Errorf("window without value")
    }
    if w.StartYear <= 0 {
        return fmt.Errorf("%s: start year required", w.Value)
    }
    if w.EndYear != nil && *w.EndYear <= w.StartYear {
        return fmt.Errorf("%s: end year %d not after start %d", w.Value, *w.EndYear, w.StartYear)
    }
    switch w.Mismatch {
    case "", domain.SignalFail, domain.SignalWarning:
    default:
        return fmt.Errorf("%s: mismatch must be fail or warning, got %q", w.Value, w.Mismatch)
    }
    return nil
}

func subjectKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// NormalizeColor lowercases and joins words with underscores.
func NormalizeColor(c string) string {
    return strings.Join(strings.Fields(strings.ToLower(c)), "_")
}

// EraWindows returns a copy of the table for subject and kind, ordered by
// start year. The context is unused; it satisfies the repository port.
func (d *Dataset) EraWindows(_ context.Context, subject string, kind domain.AttributeKind) ([]domain.EraWindow, error) {
    windows := d.eras[eraKey{subject: subjectKey(subject), kind: kind}]
    if len(windows) == 0 {
        return nil, nil
    }
    return append([]domain.EraWindow(nil), windows...), nil
}

// ColorsForDigit lists the colourways a legacy Nike suffix digit denotes.
func (d *Dataset) ColorsForDigit(digit int) []string {
    return d.colorDigits[digit]
}

// DigitForColor finds the suffix digit for a colour name, if one is mapped.
func (d *Dataset) DigitForColor(color string) (int, bool) {
    want := NormalizeColor(color)
    if want == "" {
        return 0, false
    }
    digits := make([]int, 0, len(d.colorDigits))
    for digit := range d.colorDigits {
        digits = append(digits, digit)
    }
    sort.Ints(digits)
    for _, digit := range digits {
        for _, c := range d.colorDigits[digit] {
            if c == want {
                return digit, true
            }
        }
    }
    return 0, false
}

// Table is one subject/kind era table.
type Table struct {
    Subject string
    Kind    domain.AttributeKind
    Windows []domain.EraWindow
}

// Tables lists every era table, ordered by subject then kind, for copying
// the dataset into a store.
func (d *Dataset) Tables() []Table {
    out := make([]Table, 0, len(d.eras))
    for k, w := range d.eras {
        out = append(out, Table{Subject: k.subject, Kind: k.kind, Windows: append([]domain.EraWindow(nil), w...)})
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Subject != out[j].Subject {
            return out[i].Subject < out[j].Subject
        }
        return out[i].Kind < out[j].Kind
    })
    return out
}
