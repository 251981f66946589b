package reference

import (
    "context"
    "errors"
    "os"
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "kitcheck/internal/domain"
)

func TestDefaults_ManchesterUnitedSponsors(t *testing.T) {
    ds, err := Defaults()
    require.NoError(t, err)

    windows, err := ds.EraWindows(context.Background(), "manchester united", domain.AttributeSponsor)
    require.NoError(t, err)
    require.NotEmpty(t, windows)

    var in2007 []string
    for _, w := range windows {
        if w.Contains(2007) {
            in2007 = append(in2007, w.Value)
        }
    }
    assert.Equal(t, []string{"AIG"}, in2007)

    last := windows[len(windows)-1]
    assert.Nil(t, last.EndYear)
    assert.True(t, last.Contains(2090))
}

func TestDefaults_ColorDigits(t *testing.T) {
    ds, err := Defaults()
    require.NoError(t, err)

    d, ok := ds.DigitForColor("Red")
    require.True(t, ok)
    assert.Equal(t, 6, d)

    d, ok = ds.DigitForColor("Royal Blue")
    require.True(t, ok)
    assert.Equal(t, 4, d)

    _, ok = ds.DigitForColor("teal")
    assert.False(t, ok)
    assert.Contains(t, ds.ColorsForDigit(3), "navy")
}

func TestParse_Rejects(t *testing.T) {
    cases := map[string]string{
        "unknown kind":  "eras:\n  - {subject: X, kind: shoes, windows: [{value: a, start: 2000}]}\n",
        "no start":      "eras:\n  - {subject: X, kind: sponsor, windows: [{value: a}]}\n",
        "end <= start":  "eras:\n  - {subject: X, kind: sponsor, windows: [{value: a, start: 2000, end: 2000}]}\n",
        "bad mismatch":  "eras:\n  - {subject: X, kind: sponsor, windows: [{value: a, start: 2000, mismatch: pass}]}\n",
        "digit range":   "color_suffix_digits:\n  12: [red]\n",
        "no subject":    "eras:\n  - {kind: sponsor, windows: [{value: a, start: 2000}]}\n",
    }
    for name, doc := range cases {
        t.Run(name, func(t *testing.T) {
            _, err := Parse([]byte(doc))
            assert.Error(t, err)
        })
    }
}

func TestLoadDefaults_Overlay(t *testing.T) {
    path := filepath.Join(t.TempDir(), "extra.yaml")
    doc := "eras:\n  - subject: Chelsea\n    kind: sponsor\n    windows:\n      - {value: Samsung, start: 2008, end: 2015}\n"
    require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

    ds, err := LoadDefaults(path)
    require.NoError(t, err)

    chelsea, _ := ds.EraWindows(context.Background(), "Chelsea", domain.AttributeSponsor)
    require.Len(t, chelsea, 1)
    utd, _ := ds.EraWindows(context.Background(), "Manchester United", domain.AttributeSponsor)
    assert.NotEmpty(t, utd)

    _, err = LoadDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
    assert.Error(t, err)
}

type stubEras struct {
    windows []domain.EraWindow
    err     error
}

func (s stubEras) EraWindows(context.Context, string, domain.AttributeKind) ([]domain.EraWindow, error) {
    return s.windows, s.err
}

func TestLayered(t *testing.T) {
    ds, err := Defaults()
    require.NoError(t, err)
    ctx := context.Background()
    end := 2030
    stored := []domain.EraWindow{{Value: "Stored Sponsor", StartYear: 2000, EndYear: &end}}

    t.Run("store wins when it has rows", func(t *testing.T) {
        l := NewLayered(stubEras{windows: stored}, ds, nil)
        got, err := l.EraWindows(ctx, "Manchester United", domain.AttributeSponsor)
        require.NoError(t, err)
        assert.Equal(t, stored, got)
    })
    t.Run("defaults fill an empty store", func(t *testing.T) {
        l := NewLayered(stubEras{}, ds, nil)
        got, err := l.EraWindows(ctx, "Manchester United", domain.AttributeSponsor)
        require.NoError(t, err)
        assert.NotEmpty(t, got)
    })
    t.Run("defaults cover a failing store", func(t *testing.T) {
        l := NewLayered(stubEras{err: errors.New("connection refused")}, ds, nil)
        got, err := l.EraWindows(ctx, "Manchester United", domain.AttributeManufacturer)
        require.NoError(t, err)
        assert.Len(t, got, 3)
    })
    t.Run("unknown subject is empty, not an error", func(t *testing.T) {
        l := NewLayered(nil, ds, nil)
        got, err := l.EraWindows(ctx, "Accrington Stanley", domain.AttributeSponsor)
        require.NoError(t, err)
        assert.Empty(t, got)
    })
}

func TestDataset_Tables(t *testing.T) {
    ds, err := Defaults()
    require.NoError(t, err)

    tables := ds.Tables()
    require.NotEmpty(t, tables)
    for i := 1; i < len(tables); i++ {
        prev, cur := tables[i-1], tables[i]
        assert.True(t, prev.Subject < cur.Subject || (prev.Subject == cur.Subject && prev.Kind < cur.Kind))
    }
    tables[0].Windows[0].Value = "mutated"
    again := ds.Tables()
    assert.NotEqual(t, "mutated", again[0].Windows[0].Value)
}
