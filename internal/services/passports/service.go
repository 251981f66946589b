// Package passports issues digital product passports for individual shirts,
// serves them by UID and records changes of owner.
package passports

import (
    "context"
    "errors"
    "fmt"
    "net/mail"
    "net/url"
    "regexp"
    "strings"
    "time"

    "github.com/google/uuid"
    log "github.com/sirupsen/logrus"

    "kitcheck/internal/domain"
    "kitcheck/internal/ports"
)

const (
    DefaultCertificateBaseURL = "https://kitticker.com/certificate"
    DefaultQRCodeEndpoint     = "https://api.qrserver.com/v1/create-qr-code/"
    DefaultUIDAttempts        = 4

    // codeMatchConfidence is the evidence weight of a verified catalogue hit.
    codeMatchConfidence = 95
)

const uidAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
    uidRE    = regexp.MustCompile(`^KT-\d{4}-[A-Z0-9]{6}$`)
    kitTypes = map[string]bool{"home": true, "away": true, "third": true, "goalkeeper": true}
)

type Config struct {
    CertificateBaseURL string
    QRCodeEndpoint     string
    // UIDAttempts bounds how many fresh UIDs Issue tries on collision.
    UIDAttempts int
    NewUID      func(now time.Time) string
    Now         func() time.Time
    Logger      log.FieldLogger
}

type Service struct {
    products ports.ProductCodeRepository
    repo     ports.PassportRepository

    certBase string
    qrBase   string
    attempts int
    newUID   func(time.Time) string
    now      func() time.Time
    log      log.FieldLogger
}

var _ ports.Passports = (*Service)(nil)

func New(products ports.ProductCodeRepository, repo ports.PassportRepository, cfg Config) *Service {
    s := &Service{
        products: products,
        repo:     repo,
        certBase: strings.TrimRight(cfg.CertificateBaseURL, "/"),
        qrBase:   cfg.QRCodeEndpoint,
        attempts: cfg.UIDAttempts,
        newUID:   cfg.NewUID,
        now:      cfg.Now,
        log:      cfg.Logger,
    }
    if s.certBase == "" {
        s.certBase = DefaultCertificateBaseURL
    }
    if s.qrBase == "" {
        s.qrBase = DefaultQRCodeEndpoint
    }
    if s.attempts <= 0 {
        s.attempts = DefaultUIDAttempts
    }
    if s.newUID == nil {
        s.newUID = GenerateUID
    }
    if s.now == nil {
        s.now = time.Now
    }
    if s.log == nil {
        s.log = log.StandardLogger()
    }
    return s
}

// GenerateUID returns a KT-YYYY-XXXXXX identifier. The six characters come
// from the random bits of a v4 UUID.
func GenerateUID(now time.Time) string {
    id := uuid.New()
    var b [6]byte
    for i := range b {
        b[i] = uidAlphabet[int(id[i])%len(uidAlphabet)]
    }
    return fmt.Sprintf("KT-%04d-%s", now.Year(), b[:])
}

// NormalizeUID upper-cases uid and checks its shape.
func NormalizeUID(uid string) (string, error) {
    n := strings.ToUpper(strings.TrimSpace(uid))
    if !uidRE.MatchString(n) {
        return "", fmt.Errorf("%w: %q", ErrInvalidUID, uid)
    }
    return n, nil
}

// QRCodeURL points a QR image service at the public certificate page.
func (s *Service) QRCodeURL(uid string) string {
    return s.qrBase + "?size=300x300&data=" + url.QueryEscape(s.certBase+"/"+uid)
}

func normalizeEmail(email string) (string, error) {
    addr, err := mail.ParseAddress(strings.TrimSpace(email))
    if err != nil || addr.Name != "" {
        return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
    }
    return strings.ToLower(addr.Address), nil
}

// Issue creates a passport for a catalogued code. A verified record counts
// as evidence; visual attributes, when given, are cross-validated and a
// mismatch marks the passport failed.
func (s *Service) Issue(ctx context.Context, req ports.IssuePassportRequest) (ports.IssuedPassport, error) {
    code, err := domain.ValidateCode(req.Code)
    if err != nil {
        return ports.IssuedPassport{}, err
    }
    owner, err := normalizeEmail(req.OwnerEmail)
    if err != nil {
        return ports.IssuedPassport{}, err
    }
    if req.Visual != nil {
        if err := validateKitType(req.Visual.KitType); err != nil {
            return ports.IssuedPassport{}, err
        }
    }
    product, found, err := s.products.FindByCode(ctx, code, "")
    if err != nil {
        return ports.IssuedPassport{}, fmt.Errorf("issue %s: %w", code, err)
    }
    if !found {
        return ports.IssuedPassport{}, ErrProductNotFound
    }

    now := s.now().UTC()
    p := domain.Passport{
        ProductCodeID: product.ID,
        ProductCode:   product.Code,
        OwnerEmail:    owner,
        OwnerName:     strings.TrimSpace(req.OwnerName),
        Status:        domain.PassportPending,
        Notes:         strings.TrimSpace(req.Notes),
    }
    if product.Verified {
        p.Evidence = append(p.Evidence, domain.Evidence{
            Type:       domain.EvidenceCodeMatch,
            Confidence: codeMatchConfidence,
            Details:    fmt.Sprintf("Matched verified code %s in KitTicker database", product.Code),
            Timestamp:  now,
        })
    }

    out := ports.IssuedPassport{Product: product}
    if req.Visual != nil {
        cv := crossValidate(&product, *req.Visual)
        out.Visual = &cv
        if cv.Checked > 0 {
            details := "Visual attributes match the catalogue record"
            if !cv.Passed {
                details = strings.Join(cv.Mismatches, "; ")
            }
            p.Evidence = append(p.Evidence, domain.Evidence{
                Type:       domain.EvidenceVisualMatch,
                Confidence: cv.Confidence,
                Details:    details,
                Timestamp:  now,
            })
        }
    }
    switch {
    case out.Visual != nil && !out.Visual.Passed:
        p.Status = domain.PassportFailed
        p.VerificationDate = &now
    case len(p.Evidence) > 0:
        p.Status = domain.PassportVerified
        p.VerificationDate = &now
    }

    for attempt := 1; ; attempt++ {
        p.UID = s.newUID(now)
        p.QRCodeURL = s.QRCodeURL(p.UID)
        created, err := s.repo.Create(ctx, p)
        if err == nil {
            out.Passport = created
            s.log.WithFields(log.Fields{"uid": created.UID, "code": code, "status": created.Status}).Info("passport issued")
            return out, nil
        }
        if !errors.Is(err, ports.ErrConflict) {
            return ports.IssuedPassport{}, fmt.Errorf("issue %s: %w", code, err)
        }
        if attempt >= s.attempts {
            return ports.IssuedPassport{}, fmt.Errorf("%w after %d attempts", ErrUIDExhausted, attempt)
        }
        s.log.WithField("uid", p.UID).Debug("passport uid taken, retrying")
    }
}

// Get returns a passport with owner addresses masked, plus its catalogue
// record when that still exists.
func (s *Service) Get(ctx context.Context, uid string) (ports.PassportView, error) {
    n, err := NormalizeUID(uid)
    if err != nil {
        return ports.PassportView{}, err
    }
    p, found, err := s.repo.FindByUID(ctx, n)
    if err != nil {
        return ports.PassportView{}, fmt.Errorf("passport %s: %w", n, err)
    }
    if !found {
        return ports.PassportView{}, ErrNotFound
    }
    view := ports.PassportView{Passport: p.Public()}
    product, found, err := s.products.FindByCode(ctx, p.ProductCode, "")
    if err != nil {
        s.log.WithField("uid", n).Warnf("passport product lookup: %v", err)
    } else if found {
        view.Product = &product
    }
    return view, nil
}

// Transfer moves a passport from its current owner to a new one.
func (s *Service) Transfer(ctx context.Context, uid string, req ports.TransferRequest) (domain.Passport, error) {
    n, err := NormalizeUID(uid)
    if err != nil {
        return domain.Passport{}, err
    }
    from, err := normalizeEmail(req.FromEmail)
    if err != nil {
        return domain.Passport{}, err
    }
    to, err := normalizeEmail(req.ToEmail)
    if err != nil {
        return domain.Passport{}, err
    }
    if from == to {
        return domain.Passport{}, ErrSameOwner
    }
    t := domain.Transfer{FromEmail: from, ToEmail: to, Date: s.now().UTC(), Verified: true}
    p, found, err := s.repo.Transfer(ctx, n, t, strings.TrimSpace(req.ToName))
    if err != nil {
        return domain.Passport{}, fmt.Errorf("transfer %s: %w", n, err)
    }
    if !found {
        return domain.Passport{}, ErrNotOwner
    }
    s.log.WithFields(log.Fields{"uid": n, "transfers": len(p.TransferHistory)}).Info("passport transferred")
    return p.Public(), nil
}

// CrossValidate checks what a person sees on a shirt against the catalogue
// record of the code on its label. An unknown code fails with confidence 0.
func (s *Service) CrossValidate(ctx context.Context, code string, visual domain.KitAttributes) (domain.CrossValidation, error) {
    normalized, err := domain.ValidateCode(code)
    if err != nil {
        return domain.CrossValidation{}, err
    }
    if err := validateKitType(visual.KitType); err != nil {
        return domain.CrossValidation{}, err
    }
    product, found, err := s.products.FindByCode(ctx, normalized, "")
    if err != nil {
        return domain.CrossValidation{}, fmt.Errorf("cross-validate %s: %w", normalized, err)
    }
    if !found {
        return crossValidate(nil, visual), nil
    }
    return crossValidate(&product, visual), nil
}

func validateKitType(kitType string) error {
    k := strings.ToLower(strings.TrimSpace(kitType))
    if k != "" && !kitTypes[k] {
        return fmt.Errorf("%w: %q", ErrInvalidKitType, kitType)
    }
    return nil
}

func crossValidate(product *domain.ProductCode, visual domain.KitAttributes) domain.CrossValidation {
    if product == nil {
        return domain.CrossValidation{Mismatches: []string{"Code not found in database"}}
    }
    out := domain.CrossValidation{Mismatches: []string{}}
    matched := 0

    if b := strings.TrimSpace(visual.Brand); b != "" {
        out.Checked++
        if strings.EqualFold(product.Brand, b) {
            matched++
        } else {
            out.Mismatches = append(out.Mismatches, fmt.Sprintf("Brand mismatch: expected %s, got %s", product.Brand, b))
        }
    }
    if c := strings.TrimSpace(visual.PrimaryColor); c != "" && product.PrimaryColor != "" {
        out.Checked++
        if domain.SameColorFamily(product.PrimaryColor, c) {
            matched++
        } else {
            out.Mismatches = append(out.Mismatches, fmt.Sprintf("Color mismatch: expected %s, got %s", product.PrimaryColor, c))
        }
    }
    if k := strings.ToLower(strings.TrimSpace(visual.KitType)); k != "" && product.KitType != "" {
        out.Checked++
        expected := strings.ToLower(product.KitType)
        if strings.Contains(expected, k) || strings.Contains(k, expected) {
            matched++
        } else {
            out.Mismatches = append(out.Mismatches, fmt.Sprintf("Kit type mismatch: expected %s, got %s", product.KitType, visual.KitType))
        }
    }

    out.Passed = len(out.Mismatches) == 0
    out.Confidence = 50
    if out.Checked > 0 {
        out.Confidence = float64(matched) / float64(out.Checked) * 100
    }
    return out
}

var (
    ErrInvalidUID      = errString("invalid passport uid")
    ErrInvalidEmail    = errString("invalid email address")
    ErrInvalidKitType  = errString("kit type must be home, away, third or goalkeeper")
    ErrSameOwner       = errString("passport already belongs to that address")
    ErrNotFound        = errString("passport not found")
    ErrNotOwner        = errString("passport not found or not owned by that address")
    ErrProductNotFound = errString("product code not found in database")
    ErrUIDExhausted    = errString("could not allocate a unique passport uid")
)

type errString string

func (e errString) Error() string { return string(e) }
