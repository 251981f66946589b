// Package verifier implements the multi-signal authentication of product
// codes: evaluators produce independent signals, which are scored, classified
// and optionally cross-checked against what was seen on the shirt.
package verifier

import (
    "context"
    "errors"
    "fmt"
    "time"

    log "github.com/sirupsen/logrus"
    "golang.org/x/sync/errgroup"

    "kitcheck/internal/domain"
    "kitcheck/internal/patterns"
    "kitcheck/internal/ports"
    "kitcheck/internal/scoring"
)

var (
    ErrInvalidCode = domain.ErrInvalidCode
    ErrNoSignals   = errors.New("no signals could be evaluated")
)

const (
    DefaultLookupTimeout = 2 * time.Second
    // DefaultUnmatchedScoreCeiling keeps a code with no catalogue record out
    // of the top band however clean its format is.
    DefaultUnmatchedScoreCeiling = scoring.ThresholdHighlyLikelyAuthentic - 1
)

// ColorTable maps a colourway onto the first digit of a legacy Nike suffix.
type ColorTable interface {
    DigitForColor(color string) (int, bool)
}

type Config struct {
    // LookupTimeout bounds every store call. A timeout counts as not found.
    LookupTimeout time.Duration
    // UnmatchedScoreCeiling caps the score of a code the catalogue does not
    // know. Zero selects the default; 100 or more disables the cap.
    UnmatchedScoreCeiling int

    Colors       ColorTable
    Audit        ports.VerificationLogger
    Queue        ports.TaskQueue
    CrossChecker *CrossChecker
    Logger       log.FieldLogger
    Now          func() time.Time
}

type Service struct {
    products  ports.ProductCodeRepository
    blacklist ports.BlacklistRepository
    eras      ports.EraReferenceRepository

    colors  ColorTable
    audit   ports.VerificationLogger
    queue   ports.TaskQueue
    checker *CrossChecker
    log     log.FieldLogger
    now     func() time.Time

    lookupTimeout time.Duration
    ceiling       int
}

var _ ports.Verifier = (*Service)(nil)

func New(products ports.ProductCodeRepository, blacklist ports.BlacklistRepository, eras ports.EraReferenceRepository, cfg Config) *Service {
    s := &Service{
        products:      products,
        blacklist:     blacklist,
        eras:          eras,
        colors:        cfg.Colors,
        audit:         cfg.Audit,
        queue:         cfg.Queue,
        checker:       cfg.CrossChecker,
        log:           cfg.Logger,
        now:           cfg.Now,
        lookupTimeout: cfg.LookupTimeout,
        ceiling:       cfg.UnmatchedScoreCeiling,
    }
    if s.lookupTimeout <= 0 {
        s.lookupTimeout = DefaultLookupTimeout
    }
    if s.ceiling == 0 {
        s.ceiling = DefaultUnmatchedScoreCeiling
    }
    if s.checker == nil {
        s.checker = DefaultCrossChecker()
    }
    if s.log == nil {
        s.log = log.StandardLogger()
    }
    if s.now == nil {
        s.now = time.Now
    }
    return s
}

func (s *Service) lookupContext(ctx context.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(ctx, s.lookupTimeout)
}

type lookups struct {
    product      *domain.ProductCode
    productErr   error
    blacklist    *domain.BlacklistCode
    blacklistErr error
}

// lookup runs the blacklist and catalogue queries side by side. Their errors
// are kept for the signals; neither fails the group.
func (s *Service) lookup(ctx context.Context, code, brandFilter string) lookups {
    var out lookups
    filter := ""
    if hasBrandFilter(brandFilter) {
        filter = brandFilter
    }

    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error {
        lctx, cancel := s.lookupContext(gctx)
        defer cancel()
        entry, found, err := s.blacklist.FindByCode(lctx, code)
        switch {
        case err != nil:
            out.blacklistErr = fmt.Errorf("blacklist lookup: %w", err)
        case found:
            out.blacklist = &entry
        }
        return nil
    })
    g.Go(func() error {
        lctx, cancel := s.lookupContext(gctx)
        defer cancel()
        product, found, err := s.products.FindByCode(lctx, code, filter)
        switch {
        case err != nil:
            out.productErr = fmt.Errorf("product lookup: %w", err)
        case found:
            out.product = &product
        }
        return nil
    })
    _ = g.Wait()

    if out.blacklistErr != nil {
        s.log.WithField("code", code).Warn(out.blacklistErr)
    }
    if out.productErr != nil {
        s.log.WithField("code", code).Warn(out.productErr)
    }
    return out
}

func (s *Service) VerifyProductCode(ctx context.Context, code string, opts ports.VerifyOptions) (domain.VerificationResult, error) {
    res, err := s.verify(ctx, code, opts.BrandFilter)
    if err != nil {
        return res, err
    }
    s.afterVerify(res, opts.BrandFilter)
    return res, nil
}

// VerifyWithVisualData verifies code and then lets the observation override
// the colour, sponsor and technology signals it can speak to.
func (s *Service) VerifyWithVisualData(ctx context.Context, code string, visual *domain.VisualObservation, brandFilter string) (domain.VerificationResult, error) {
    res, err := s.verify(ctx, code, brandFilter)
    if err != nil {
        return res, err
    }
    if visual != nil {
        checks := s.checker.Compare(res.MatchedProduct, *visual)
        res.Signals = s.checker.Apply(res.Signals, checks)
        s.finalize(&res)
    }
    s.afterVerify(res, brandFilter)
    return res, nil
}

func (s *Service) verify(ctx context.Context, code, brandFilter string) (domain.VerificationResult, error) {
    normalized, err := domain.ValidateCode(code)
    if err != nil {
        return domain.VerificationResult{}, err
    }
    detected := patterns.DetectBrand(normalized)
    found := s.lookup(ctx, normalized, brandFilter)
    if err := ctx.Err(); err != nil {
        return domain.VerificationResult{}, err
    }

    signals := []domain.Signal{
        blacklistSignal(found.blacklist, found.blacklistErr),
        databaseSignal(found.product, found.productErr),
    }
    brand := effectiveBrand(detected, found.product)
    signals = append(signals, formatSignal(normalized, brand))
    matchedBrand := ""
    if found.product != nil {
        matchedBrand = found.product.Brand
    }
    signals = append(signals, brandConsistencySignal(detected, brandFilter, matchedBrand))
    if found.product != nil {
        signals = append(signals, s.recordSignals(ctx, normalized, *found.product, brand)...)
    }
    if len(signals) == 0 {
        return domain.VerificationResult{}, ErrNoSignals
    }

    res := domain.VerificationResult{
        Code:           code,
        NormalizedCode: normalized,
        Signals:        signals,
        MatchedProduct: found.product,
        BlacklistMatch: found.blacklist,
        Timestamp:      s.now().UTC(),
    }
    s.finalize(&res)
    return res, nil
}

// afterVerify queues the lookup counter and the audit entry. Neither can
// fail the verification.
func (s *Service) afterVerify(res domain.VerificationResult, brandFilter string) {
    if res.MatchedProduct != nil {
        id := res.MatchedProduct.ID
        s.submit(ports.Task{Name: "increment_lookup_count", Run: func(ctx context.Context) error {
            return s.products.IncrementLookupCount(ctx, id)
        }})
    }
    s.submitAudit(res, brandFilter)

    s.log.WithFields(log.Fields{
        "code":    res.NormalizedCode,
        "verdict": res.Verdict,
        "score":   res.ConfidenceScore,
        "signals": len(res.Signals),
    }).Debug("code verified")
}

// recordSignals runs the checks that need attributes of the matched record.
func (s *Service) recordSignals(ctx context.Context, code string, p domain.ProductCode, brand domain.Brand) []domain.Signal {
    subject := string(brand)
    candidates := []*domain.Signal{
        s.evaluateEra(ctx, sponsorRule, eraInput{subject: p.Team, actual: p.Sponsor}, p.Season),
        s.evaluateEra(ctx, technologyRule, eraInput{subject: subject, actual: p.Technology, tier: p.Tier}, p.Season),
        s.evaluateEra(ctx, labelPositionRule, eraInput{subject: subject, actual: p.LabelPositionEra}, p.Season),
        s.colorSuffixSignal(code, p),
        s.evaluateEra(ctx, manufacturerRule, eraInput{subject: p.Team, actual: subject}, p.Season),
        s.evaluateEra(ctx, originRule, eraInput{subject: subject, actual: p.CountryOfManufacture}, p.Season),
    }
    var out []domain.Signal
    for _, sig := range candidates {
        if sig != nil {
            out = append(out, *sig)
        }
    }
    return out
}

// finalize scores and classifies res.Signals in place.
func (s *Service) finalize(res *domain.VerificationResult) {
    score := scoring.Score(res.Signals)
    if res.MatchedProduct == nil && s.ceiling < 100 && score > s.ceiling {
        score = s.ceiling
    }
    blacklisted := res.BlacklistMatch != nil
    res.Verdict = scoring.Classify(score, blacklisted)
    if blacklisted {
        score = 0
    }
    res.ConfidenceScore = score
    res.Recommendation = scoring.Recommendation(res.Verdict)
    res.InsufficientEvidence = !scoring.HasEvidence(res.Signals)
}

func (s *Service) submit(task ports.Task) {
    if s.queue == nil {
        return
    }
    if !s.queue.Submit(task) {
        s.log.WithField("task", task.Name).Warn("side effect dropped")
    }
}

func (s *Service) submitAudit(res domain.VerificationResult, brandFilter string) {
    if s.audit == nil {
        return
    }
    entry := domain.VerificationLogEntry{
        Code:            res.NormalizedCode,
        BrandFilter:     brandFilter,
        Verdict:         res.Verdict,
        ConfidenceScore: res.ConfidenceScore,
        Signals:         domain.Summarize(res.Signals),
        CheckedAt:       res.Timestamp,
    }
    s.submit(ports.Task{Name: "audit_log", Run: func(ctx context.Context) error {
        return s.audit.LogVerification(ctx, entry)
    }})
}
