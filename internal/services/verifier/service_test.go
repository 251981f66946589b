package verifier

import (
    "context"
    "errors"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "kitcheck/internal/domain"
    "kitcheck/internal/ports"
    "kitcheck/internal/reference"
)

type fakeProducts struct {
    mu        sync.Mutex
    byCode    map[string]domain.ProductCode
    err       error
    delay     time.Duration
    calls     int
    increment []string
}

func (f *fakeProducts) FindByCode(ctx context.Context, code, brandFilter string) (domain.ProductCode, bool, error) {
    f.mu.Lock()
    f.calls++
    f.mu.Unlock()
    if f.delay > 0 {
        select {
        case <-time.After(f.delay):
        case <-ctx.Done():
            return domain.ProductCode{}, false, ctx.Err()
        }
    }
    if f.err != nil {
        return domain.ProductCode{}, false, f.err
    }
    p, ok := f.byCode[code]
    if ok && brandFilter != "" && !strings.EqualFold(p.Brand, brandFilter) {
        return domain.ProductCode{}, false, nil
    }
    return p, ok, nil
}

func (f *fakeProducts) FindByCodes(context.Context, []string) (map[string]domain.ProductCode, error) {
    return nil, errors.New("not used")
}

func (f *fakeProducts) IncrementLookupCount(_ context.Context, id string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.increment = append(f.increment, id)
    return nil
}

type fakeBlacklist struct {
    byCode map[string]domain.BlacklistCode
    err    error
    calls  int
}

func (f *fakeBlacklist) FindByCode(_ context.Context, code string) (domain.BlacklistCode, bool, error) {
    f.calls++
    if f.err != nil {
        return domain.BlacklistCode{}, false, f.err
    }
    e, ok := f.byCode[code]
    return e, ok, nil
}

func (f *fakeBlacklist) FindByCodes(context.Context, []string) (map[string]domain.BlacklistCode, error) {
    return nil, errors.New("not used")
}

// inlineQueue runs tasks on Submit so tests can assert on their effects.
type inlineQueue struct {
    names []string
}

func (q *inlineQueue) Submit(t ports.Task) bool {
    q.names = append(q.names, t.Name)
    _ = t.Run(context.Background())
    return true
}

type recordingAudit struct {
    entries []domain.VerificationLogEntry
}

func (a *recordingAudit) LogVerification(_ context.Context, e domain.VerificationLogEntry) error {
    a.entries = append(a.entries, e)
    return nil
}

func intPtr(v int) *int { return &v }

func newTestService(t *testing.T, products *fakeProducts, blacklist *fakeBlacklist, cfg Config) *Service {
    t.Helper()
    ds, err := reference.Defaults()
    require.NoError(t, err)
    if products == nil {
        products = &fakeProducts{}
    }
    if blacklist == nil {
        blacklist = &fakeBlacklist{}
    }
    if cfg.Colors == nil {
        cfg.Colors = ds
    }
    return New(products, blacklist, reference.NewLayered(nil, ds, nil), cfg)
}

func signalByID(t *testing.T, res domain.VerificationResult, id domain.SignalID) domain.Signal {
    t.Helper()
    for _, s := range res.Signals {
        if s.ID == id {
            return s
        }
    }
    t.Fatalf("signal %s not present", id)
    return domain.Signal{}
}

func hasSignal(res domain.VerificationResult, id domain.SignalID) bool {
    for _, s := range res.Signals {
        if s.ID == id {
            return true
        }
    }
    return false
}

func manUtdProduct() domain.ProductCode {
    return domain.ProductCode{
        ID:      "p-245435",
        Code:    "245435-623",
        Brand:   "Nike",
        Team:    "Manchester United",
        Season:  "2007/08",
        KitType: "Home",
        Sponsor: "AIG",
    }
}

func TestVerify_UnknownNikeCode(t *testing.T) {
    svc := newTestService(t, nil, nil, Config{})

    res, err := svc.VerifyProductCode(context.Background(), " cz3984-100 ", ports.VerifyOptions{})
    require.NoError(t, err)

    assert.Equal(t, "CZ3984-100", res.NormalizedCode)
    assert.Equal(t, domain.SignalPass, signalByID(t, res, domain.SignalFormatValidation).Value)
    assert.Equal(t, domain.SignalUnknown, signalByID(t, res, domain.SignalDatabaseMatch).Value)
    assert.Equal(t, domain.SignalPass, signalByID(t, res, domain.SignalBlacklistCheck).Value)
    assert.Equal(t, domain.SignalPass, signalByID(t, res, domain.SignalBrandConsistency).Value)
    assert.Len(t, res.Signals, 4)

    assert.Equal(t, 89, res.ConfidenceScore)
    assert.Equal(t, domain.VerdictProbablyAuthentic, res.Verdict)
    assert.False(t, res.InsufficientEvidence)
    assert.Nil(t, res.MatchedProduct)
    assert.Nil(t, res.BlacklistMatch)
}

func TestVerify_UnmatchedCeilingCanBeDisabled(t *testing.T) {
    svc := newTestService(t, nil, nil, Config{UnmatchedScoreCeiling: 100})

    res, err := svc.VerifyProductCode(context.Background(), "CZ3984-100", ports.VerifyOptions{})
    require.NoError(t, err)
    assert.Equal(t, 100, res.ConfidenceScore)
    assert.Equal(t, domain.VerdictHighlyLikelyAuthentic, res.Verdict)
}

func TestVerify_Blacklisted(t *testing.T) {
    bl := &fakeBlacklist{byCode: map[string]domain.BlacklistCode{
        "CZ3984-100": {ID: "b1", Code: "CZ3984-100", Brand: "Nike", Reason: "known counterfeit batch", Severity: domain.SeverityHigh},
    }}
    products := &fakeProducts{byCode: map[string]domain.ProductCode{
        "CZ3984-100": {ID: "p1", Code: "CZ3984-100", Brand: "Nike", Verified: true},
    }}
    svc := newTestService(t, products, bl, Config{})

    res, err := svc.VerifyProductCode(context.Background(), "CZ3984-100", ports.VerifyOptions{})
    require.NoError(t, err)

    assert.Equal(t, domain.VerdictBlacklisted, res.Verdict)
    assert.Equal(t, 0, res.ConfidenceScore)
    assert.Contains(t, res.Recommendation, "Do not purchase")
    require.NotNil(t, res.BlacklistMatch)
    assert.Equal(t, "known counterfeit batch", res.BlacklistMatch.Reason)

    bs := signalByID(t, res, domain.SignalBlacklistCheck)
    assert.Equal(t, domain.SignalFail, bs.Value)
    assert.Contains(t, bs.Evidence, "known counterfeit batch")
    assert.Equal(t, domain.SignalPass, signalByID(t, res, domain.SignalFormatValidation).Value)
}

func TestVerify_SponsorOutOfEra(t *testing.T) {
    p := manUtdProduct()
    p.Sponsor = "Chevrolet"
    svc := newTestService(t, &fakeProducts{byCode: map[string]domain.ProductCode{p.Code: p}}, nil, Config{})

    res, err := svc.VerifyProductCode(context.Background(), p.Code, ports.VerifyOptions{})
    require.NoError(t, err)

    sponsor := signalByID(t, res, domain.SignalSponsorEra)
    assert.Equal(t, domain.SignalFail, sponsor.Value)
    assert.Contains(t, sponsor.Evidence, "AIG")
    assert.Equal(t, domain.SignalPass, signalByID(t, res, domain.SignalEraPlausibility).Value)
    assert.Less(t, res.ConfidenceScore, 90)
    assert.Equal(t, domain.VerdictProbablyAuthentic, res.Verdict)

    clean := manUtdProduct()
    svc = newTestService(t, &fakeProducts{byCode: map[string]domain.ProductCode{clean.Code: clean}}, nil, Config{})
    cleanRes, err := svc.VerifyProductCode(context.Background(), clean.Code, ports.VerifyOptions{})
    require.NoError(t, err)
    assert.Equal(t, domain.SignalPass, signalByID(t, cleanRes, domain.SignalSponsorEra).Value)
    assert.Greater(t, cleanRes.ConfidenceScore, res.ConfidenceScore)
    assert.Equal(t, 89, res.ConfidenceScore)

    // A verified record carries enough other evidence that one sponsor
    // failure still rounds into the top band: 69.4 of 77.4 is 89.66.
    verified := manUtdProduct()
    verified.Verified = true
    verified.Sponsor = "Chevrolet"
    svc = newTestService(t, &fakeProducts{byCode: map[string]domain.ProductCode{verified.Code: verified}}, nil, Config{})
    vres, err := svc.VerifyProductCode(context.Background(), verified.Code, ports.VerifyOptions{})
    require.NoError(t, err)
    assert.Equal(t, domain.SignalFail, signalByID(t, vres, domain.SignalSponsorEra).Value)
    assert.Equal(t, 90, vres.ConfidenceScore)
    assert.Equal(t, domain.VerdictHighlyLikelyAuthentic, vres.Verdict)
}

func TestVerifyWithVisualData_ColorMismatch(t *testing.T) {
    p := manUtdProduct()
    p.Verified = true
    p.PrimaryColor = "red"
    p.ExpectedSuffixDigit = intPtr(6)
    svc := newTestService(t, &fakeProducts{byCode: map[string]domain.ProductCode{p.Code: p}}, nil, Config{})
    ctx := context.Background()

    before, err := svc.VerifyProductCode(ctx, p.Code, ports.VerifyOptions{})
    require.NoError(t, err)
    require.Equal(t, domain.SignalPass, signalByID(t, before, domain.SignalColorSuffix).Value)
    require.Equal(t, 100, before.ConfidenceScore)

    after, err := svc.VerifyWithVisualData(ctx, p.Code, &domain.VisualObservation{DominantColor: "blue", ColorConfidence: 80}, "")
    require.NoError(t, err)

    color := signalByID(t, after, domain.SignalColorSuffix)
    assert.Equal(t, domain.SignalFail, color.Value)
    assert.Equal(t, true, color.Details["visual_check"])
    assert.Contains(t, color.Evidence, "blue")
    assert.LessOrEqual(t, after.ConfidenceScore, before.ConfidenceScore)
    assert.Equal(t, 94, after.ConfidenceScore)
    assert.Len(t, after.Signals, len(before.Signals))

    t.Run("unreported colour confidence still compares", func(t *testing.T) {
        res, err := svc.VerifyWithVisualData(ctx, p.Code, &domain.VisualObservation{DominantColor: "blue"}, "")
        require.NoError(t, err)
        assert.Equal(t, domain.SignalFail, signalByID(t, res, domain.SignalColorSuffix).Value)
        assert.Equal(t, 94, res.ConfidenceScore)
    })
    t.Run("low colour confidence is ignored", func(t *testing.T) {
        res, err := svc.VerifyWithVisualData(ctx, p.Code, &domain.VisualObservation{DominantColor: "blue", ColorConfidence: 40}, "")
        require.NoError(t, err)
        assert.Equal(t, domain.SignalPass, signalByID(t, res, domain.SignalColorSuffix).Value)
        assert.Equal(t, before.ConfidenceScore, res.ConfidenceScore)
    })
    t.Run("nil observation is a plain verification", func(t *testing.T) {
        res, err := svc.VerifyWithVisualData(ctx, p.Code, nil, "")
        require.NoError(t, err)
        assert.Equal(t, before.ConfidenceScore, res.ConfidenceScore)
    })
}

func TestVerifyWithVisualData_BlacklistStillWins(t *testing.T) {
    p := manUtdProduct()
    p.PrimaryColor = "red"
    bl := &fakeBlacklist{byCode: map[string]domain.BlacklistCode{p.Code: {Code: p.Code, Reason: "replica factory code"}}}
    svc := newTestService(t, &fakeProducts{byCode: map[string]domain.ProductCode{p.Code: p}}, bl, Config{})

    res, err := svc.VerifyWithVisualData(context.Background(), p.Code,
        &domain.VisualObservation{DominantColor: "red", ColorConfidence: 95}, "")
    require.NoError(t, err)
    assert.Equal(t, domain.VerdictBlacklisted, res.Verdict)
    assert.Equal(t, 0, res.ConfidenceScore)
    assert.Contains(t, res.Recommendation, "Do not purchase")
}

func TestVerify_InvalidInputSkipsLookups(t *testing.T) {
    products := &fakeProducts{}
    bl := &fakeBlacklist{}
    svc := newTestService(t, products, bl, Config{})

    for _, code := range []string{"", "   ", "CZ3984 100", "CZ3984/100", "-CZ3984", strings.Repeat("A", 33)} {
        _, err := svc.VerifyProductCode(context.Background(), code, ports.VerifyOptions{})
        assert.ErrorIs(t, err, ErrInvalidCode, "code %q", code)
    }
    assert.Zero(t, products.calls)
    assert.Zero(t, bl.calls)
}

func TestVerify_LookupFailuresDegrade(t *testing.T) {
    products := &fakeProducts{err: errors.New("connection reset")}
    bl := &fakeBlacklist{err: errors.New("connection reset")}
    svc := newTestService(t, products, bl, Config{})

    res, err := svc.VerifyProductCode(context.Background(), "IS7462", ports.VerifyOptions{})
    require.NoError(t, err)

    db := signalByID(t, res, domain.SignalDatabaseMatch)
    assert.Equal(t, domain.SignalUnknown, db.Value)
    assert.Contains(t, db.Details["lookup_error"], "connection reset")
    blk := signalByID(t, res, domain.SignalBlacklistCheck)
    assert.Equal(t, domain.SignalUnknown, blk.Value)
    assert.Equal(t, 0.5, blk.Confidence)
    assert.NotEqual(t, domain.VerdictBlacklisted, res.Verdict)
}

func TestVerify_LookupTimeoutIsNotFound(t *testing.T) {
    products := &fakeProducts{
        delay:  time.Second,
        byCode: map[string]domain.ProductCode{"IS7462": {ID: "p1", Code: "IS7462", Brand: "Adidas"}},
    }
    svc := newTestService(t, products, nil, Config{LookupTimeout: 20 * time.Millisecond})

    start := time.Now()
    res, err := svc.VerifyProductCode(context.Background(), "IS7462", ports.VerifyOptions{})
    require.NoError(t, err)
    assert.Less(t, time.Since(start), 500*time.Millisecond)
    assert.Nil(t, res.MatchedProduct)
    assert.Equal(t, domain.SignalUnknown, signalByID(t, res, domain.SignalDatabaseMatch).Value)
}

func TestVerify_CancelledContext(t *testing.T) {
    svc := newTestService(t, nil, nil, Config{})
    ctx, cancel := context.WithCancel(context.Background())
    cancel()

    _, err := svc.VerifyProductCode(ctx, "IS7462", ports.VerifyOptions{})
    assert.ErrorIs(t, err, context.Canceled)
}

// A found-but-unverified record and a missing record are different outcomes
// and must stay distinguishable.
func TestDatabaseSignal_Confidences(t *testing.T) {
    verified := databaseSignal(&domain.ProductCode{Brand: "Nike", Verified: true}, nil)
    unverified := databaseSignal(&domain.ProductCode{Brand: "Nike"}, nil)
    missing := databaseSignal(nil, nil)

    assert.Equal(t, domain.SignalPass, verified.Value)
    assert.Equal(t, 1.0, verified.Confidence)
    assert.Equal(t, domain.SignalPass, unverified.Value)
    assert.Equal(t, 0.7, unverified.Confidence)
    assert.Equal(t, domain.SignalUnknown, missing.Value)
    assert.Equal(t, 0.6, missing.Confidence)
}

func TestVerify_BrandFilter(t *testing.T) {
    svc := newTestService(t, nil, nil, Config{})
    ctx := context.Background()

    cases := []struct {
        filter string
        value  domain.SignalValue
        conf   float64
    }{
        {"", domain.SignalPass, 0.8},
        {"all", domain.SignalPass, 0.8},
        {"nike", domain.SignalPass, 0.95},
        {"Adidas", domain.SignalWarning, 0.4},
    }
    for _, tc := range cases {
        res, err := svc.VerifyProductCode(ctx, "CZ3984-100", ports.VerifyOptions{BrandFilter: tc.filter})
        require.NoError(t, err)
        s := signalByID(t, res, domain.SignalBrandConsistency)
        assert.Equal(t, tc.value, s.Value, "filter %q", tc.filter)
        assert.Equal(t, tc.conf, s.Confidence, "filter %q", tc.filter)
    }
}

func TestVerify_FullRecordSignalsAreUnique(t *testing.T) {
    p := domain.ProductCode{
        ID: "p9", Code: "IS7462", Brand: "Adidas", Team: "Manchester United", Season: "2023/24",
        Verified: true, Sponsor: "TeamViewer", Technology: "HEAT.RDY", Tier: "authentic",
        LabelPositionEra: "neck_tag", CountryOfManufacture: "Cambodia",
    }
    svc := newTestService(t, &fakeProducts{byCode: map[string]domain.ProductCode{p.Code: p}}, nil, Config{})

    res, err := svc.VerifyProductCode(context.Background(), p.Code, ports.VerifyOptions{})
    require.NoError(t, err)

    seen := map[domain.SignalID]bool{}
    for _, s := range res.Signals {
        assert.False(t, seen[s.ID], "duplicate %s", s.ID)
        seen[s.ID] = true
        assert.Equal(t, domain.SignalPass, s.Value, "%s: %s", s.ID, s.Evidence)
    }
    for _, id := range []domain.SignalID{
        domain.SignalSponsorEra, domain.SignalTechnologyTier, domain.SignalLabelPosition,
        domain.SignalEraPlausibility, domain.SignalManufacturingOrigin,
    } {
        assert.True(t, seen[id], "missing %s", id)
    }
    assert.False(t, hasSignal(res, domain.SignalColorSuffix))
    assert.Equal(t, 100, res.ConfidenceScore)
}

func TestVerify_QueuesSideEffects(t *testing.T) {
    p := manUtdProduct()
    products := &fakeProducts{byCode: map[string]domain.ProductCode{p.Code: p}}
    queue := &inlineQueue{}
    audit := &recordingAudit{}
    fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    svc := newTestService(t, products, nil, Config{Queue: queue, Audit: audit, Now: func() time.Time { return fixed }})

    res, err := svc.VerifyProductCode(context.Background(), p.Code, ports.VerifyOptions{BrandFilter: "Nike"})
    require.NoError(t, err)

    assert.Equal(t, []string{"increment_lookup_count", "audit_log"}, queue.names)
    assert.Equal(t, []string{p.ID}, products.increment)
    require.Len(t, audit.entries, 1)
    e := audit.entries[0]
    assert.Equal(t, p.Code, e.Code)
    assert.Equal(t, "Nike", e.BrandFilter)
    assert.Equal(t, res.Verdict, e.Verdict)
    assert.Equal(t, res.ConfidenceScore, e.ConfidenceScore)
    assert.Len(t, e.Signals, len(res.Signals))
    assert.Equal(t, fixed, e.CheckedAt)

    queue.names = nil
    _, err = svc.VerifyProductCode(context.Background(), "CZ3984-100", ports.VerifyOptions{})
    require.NoError(t, err)
    assert.Equal(t, []string{"audit_log"}, queue.names)
}

type rejectingQueue struct{}

func (rejectingQueue) Submit(ports.Task) bool { return false }

func TestVerify_DroppedSideEffectsDoNotFail(t *testing.T) {
    svc := newTestService(t, nil, nil, Config{Queue: rejectingQueue{}, Audit: &recordingAudit{}})
    _, err := svc.VerifyProductCode(context.Background(), "CZ3984-100", ports.VerifyOptions{})
    assert.NoError(t, err)
}

func TestFinalize_InsufficientEvidence(t *testing.T) {
    svc := newTestService(t, nil, nil, Config{})
    res := domain.VerificationResult{Signals: []domain.Signal{
        newSignal(domain.SignalDatabaseMatch, "Database Match", domain.SignalUnknown, 0.6, ""),
        newSignal(domain.SignalBlacklistCheck, "Blacklist Check", domain.SignalUnknown, 0.5, ""),
    }}
    svc.finalize(&res)

    assert.True(t, res.InsufficientEvidence)
    assert.Equal(t, 50, res.ConfidenceScore)
    assert.Equal(t, domain.VerdictUncertain, res.Verdict)
}
