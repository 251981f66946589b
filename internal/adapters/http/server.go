package httpadapter

import (
    "context"
    "errors"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/goccy/go-json"
    "github.com/google/uuid"
    "github.com/oapi-codegen/runtime"
    log "github.com/sirupsen/logrus"

    "kitcheck/internal/domain"
    "kitcheck/internal/logging"
    "kitcheck/internal/ports"
    codesvc "kitcheck/internal/services/codes"
    "kitcheck/internal/services/imaging"
    "kitcheck/internal/services/passports"
    "kitcheck/internal/services/verifier"
)

const (
    maxJSONBody   = 1 << 20
    maxUploadSize = 10 << 20
    healthTimeout = 2 * time.Second

    // Passports are public and change rarely; the QR landing page can cache.
    passportCacheControl = "public, max-age=300"
)

// ImageAnalyzer reads colour and label hints off an uploaded photo.
type ImageAnalyzer interface {
    Analyze(ctx context.Context, image io.Reader, texts []string) (imaging.Analysis, error)
}

type Server struct {
    verifier  ports.Verifier
    codes     ports.Codes
    passports ports.Passports
    analyzer  ImageAnalyzer
    store     ports.Pinger
    version   string
    log       log.FieldLogger
    now       func() time.Time
}

func New(v ports.Verifier, codes ports.Codes, passports ports.Passports, analyzer ImageAnalyzer, store ports.Pinger, version string, logger log.FieldLogger) *Server {
    if logger == nil {
        logger = log.StandardLogger()
    }
    return &Server{verifier: v, codes: codes, passports: passports, analyzer: analyzer, store: store, version: version, log: logger, now: time.Now}
}

// Routes returns the API router.
func (s *Server) Routes() chi.Router {
    r := chi.NewRouter()
    r.Use(requestID)
    r.Use(s.accessLog)
    r.Use(middleware.Recoverer)

    r.Route("/v1", func(r chi.Router) {
        r.Get("/health", s.health)
        r.Post("/verify", s.verify)
        r.Get("/codes/lookup", s.lookup)
        r.Post("/codes/validate", s.validate)
        r.Post("/analyze", s.analyze)
        r.Route("/dpp", func(r chi.Router) {
            r.Post("/", s.issuePassport)
            r.Post("/cross-validate", s.crossValidate)
            r.Get("/{uid}", s.getPassport)
            r.Post("/{uid}/transfer", s.transferPassport)
        })
    })
    return r
}

type ctxKey struct{}

// requestID takes X-Request-ID from the caller when it is a UUID and mints
// one otherwise.
func requestID(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        id := r.Header.Get("X-Request-ID")
        if _, err := uuid.Parse(id); err != nil {
            id = uuid.NewString()
        }
        w.Header().Set("X-Request-ID", id)
        next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
    })
}

func requestIDFrom(ctx context.Context) string {
    id, _ := ctx.Value(ctxKey{}).(string)
    return id
}

func (s *Server) logger(r *http.Request) log.FieldLogger {
    return s.log.WithField(logging.RequestIDField, shortID(requestIDFrom(r.Context())))
}

func shortID(id string) string {
    if len(id) > 8 {
        return id[:8]
    }
    return id
}

func (s *Server) accessLog(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
        next.ServeHTTP(ww, r)
        s.logger(r).WithFields(log.Fields{
            "method":  r.Method,
            "path":    r.URL.Path,
            "status":  ww.Status(),
            "elapsed": time.Since(start).Round(time.Microsecond),
        }).Info("request")
    })
}

type errorBody struct {
    Code    string `json:"code"`
    Message string `json:"message"`
}

type envelope struct {
    Success   bool       `json:"success"`
    RequestID string     `json:"request_id"`
    Data      any        `json:"data,omitempty"`
    Error     *errorBody `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(body)
}

func (s *Server) ok(w http.ResponseWriter, r *http.Request, data any) {
    s.respond(w, r, http.StatusOK, data)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, data any) {
    writeJSON(w, status, envelope{Success: true, RequestID: requestIDFrom(r.Context()), Data: data})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
    writeJSON(w, status, envelope{RequestID: requestIDFrom(r.Context()), Error: &errorBody{Code: code, Message: msg}})
}

// failErr maps service errors onto statuses; anything unexpected is a 500
// whose detail stays in the log.
func (s *Server) failErr(w http.ResponseWriter, r *http.Request, err error) {
    switch {
    case errors.Is(err, domain.ErrInvalidCode):
        s.fail(w, r, http.StatusBadRequest, "INVALID_CODE", err.Error())
    case errors.Is(err, codesvc.ErrNotFound):
        s.fail(w, r, http.StatusNotFound, "NOT_FOUND", "Product code not found in database")
    case errors.Is(err, codesvc.ErrEmptyBatch), errors.Is(err, codesvc.ErrBatchTooLarge):
        s.fail(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
    case errors.Is(err, passports.ErrInvalidUID), errors.Is(err, passports.ErrInvalidEmail),
        errors.Is(err, passports.ErrInvalidKitType), errors.Is(err, passports.ErrSameOwner):
        s.fail(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
    case errors.Is(err, passports.ErrProductNotFound):
        s.fail(w, r, http.StatusNotFound, "NOT_FOUND", "Product code not found in database")
    case errors.Is(err, passports.ErrNotFound):
        s.fail(w, r, http.StatusNotFound, "NOT_FOUND", "DPP not found")
    case errors.Is(err, passports.ErrNotOwner):
        s.fail(w, r, http.StatusNotFound, "NOT_FOUND", "DPP not found or you are not the owner")
    case errors.Is(err, verifier.ErrNoSignals):
        s.fail(w, r, http.StatusUnprocessableEntity, "NO_SIGNALS", err.Error())
    case errors.Is(err, context.DeadlineExceeded):
        s.fail(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out")
    default:
        s.logger(r).Errorf("request failed: %v", err)
        s.fail(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
    }
}

func decodeJSON(r *http.Request, dst any) error {
    dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
    return dec.Decode(dst)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
    defer cancel()

    start := time.Now()
    dbStatus, status, code := "up", "healthy", http.StatusOK
    if s.store != nil {
        if err := s.store.Ping(ctx); err != nil {
            s.logger(r).Warnf("health: store ping failed: %v", err)
            dbStatus, status, code = "down", "unhealthy", http.StatusServiceUnavailable
        }
    }
    writeJSON(w, code, map[string]any{
        "status":     status,
        "timestamp":  s.now().UTC().Format(time.RFC3339),
        "version":    s.version,
        "latency_ms": time.Since(start).Milliseconds(),
        "services":   map[string]string{"database": dbStatus},
    })
}

type visualAttributes struct {
    PrimaryColor    string  `json:"primary_color"`
    Sponsor         string  `json:"sponsor"`
    Technology      string  `json:"technology"`
    Brand           string  `json:"brand"`
    KitType         string  `json:"kit_type"`
    ColorConfidence float64 `json:"color_confidence"`
}

// observation leaves an absent color_confidence at zero, which the verifier
// reads as unmeasured.
func (v *visualAttributes) observation() *domain.VisualObservation {
    if v == nil {
        return nil
    }
    return &domain.VisualObservation{
        DominantColor:   v.PrimaryColor,
        SponsorHint:     v.Sponsor,
        TechnologyHint:  v.Technology,
        Brand:           v.Brand,
        KitType:         v.KitType,
        ColorConfidence: v.ColorConfidence,
    }
}

type verifyRequest struct {
    Code             string            `json:"code"`
    Brand            string            `json:"brand"`
    VisualAttributes *visualAttributes `json:"visual_attributes"`
}

type verifyResponse struct {
    domain.VerificationResult
    APIVerdict   string `json:"api_verdict"`
    VerdictLabel string `json:"verdict_label"`
}

func wrapResult(res domain.VerificationResult) verifyResponse {
    return verifyResponse{VerificationResult: res, APIVerdict: res.Verdict.APIVerdict(), VerdictLabel: res.Verdict.Label()}
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
    var req verifyRequest
    if err := decodeJSON(r, &req); err != nil {
        s.fail(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON")
        return
    }
    if strings.TrimSpace(req.Code) == "" {
        s.fail(w, r, http.StatusBadRequest, "MISSING_CODE", "Request body must include a \"code\" field")
        return
    }

    var (
        res domain.VerificationResult
        err error
    )
    if obs := req.VisualAttributes.observation(); obs != nil {
        res, err = s.verifier.VerifyWithVisualData(r.Context(), req.Code, obs, req.Brand)
    } else {
        res, err = s.verifier.VerifyProductCode(r.Context(), req.Code, ports.VerifyOptions{BrandFilter: req.Brand})
    }
    if err != nil {
        s.failErr(w, r, err)
        return
    }
    s.ok(w, r, wrapResult(res))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
    var code string
    var brand *string
    if err := runtime.BindQueryParameter("form", true, true, "code", r.URL.Query(), &code); err != nil {
        s.fail(w, r, http.StatusBadRequest, "MISSING_CODE", err.Error())
        return
    }
    if err := runtime.BindQueryParameter("form", true, false, "brand", r.URL.Query(), &brand); err != nil {
        s.fail(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
        return
    }
    filter := ""
    if brand != nil {
        filter = *brand
    }
    res, err := s.codes.Lookup(r.Context(), code, filter)
    if err != nil {
        s.failErr(w, r, err)
        return
    }
    s.ok(w, r, res)
}

type validateRequest struct {
    Codes []string `json:"codes"`
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
    var req validateRequest
    if err := decodeJSON(r, &req); err != nil {
        s.fail(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON")
        return
    }
    results, stats, err := s.codes.ValidateBatch(r.Context(), req.Codes)
    if err != nil {
        s.failErr(w, r, err)
        return
    }
    s.ok(w, r, map[string]any{"results": results, "stats": stats})
}

type analyzeResponse struct {
    Analysis     imaging.Analysis `json:"analysis"`
    Verification *verifyResponse  `json:"verification,omitempty"`
}

// analyze takes a multipart form: an optional "image" file, repeated "text"
// fields of OCR output, and optionally "code" and "brand" to cross-check.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
    r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
    if err := r.ParseMultipartForm(maxUploadSize); err != nil {
        s.fail(w, r, http.StatusBadRequest, "INVALID_FORM", "Expected a multipart form under 10MB")
        return
    }
    defer func() { _ = r.MultipartForm.RemoveAll() }()

    var image io.Reader
    if f, _, err := r.FormFile("image"); err == nil {
        defer f.Close()
        image = f
    } else if !errors.Is(err, http.ErrMissingFile) {
        s.fail(w, r, http.StatusBadRequest, "INVALID_FORM", err.Error())
        return
    }
    texts := r.MultipartForm.Value["text"]
    if image == nil && len(texts) == 0 {
        s.fail(w, r, http.StatusBadRequest, "MISSING_INPUT", "Provide an image or at least one text fragment")
        return
    }

    analysis, err := s.analyzer.Analyze(r.Context(), image, texts)
    if err != nil {
        s.fail(w, r, http.StatusUnprocessableEntity, "IMAGE_UNREADABLE", err.Error())
        return
    }
    out := analyzeResponse{Analysis: analysis}

    if code := strings.TrimSpace(r.FormValue("code")); code != "" {
        obs := analysis.Observation()
        res, err := s.verifier.VerifyWithVisualData(r.Context(), code, &obs, r.FormValue("brand"))
        if err != nil {
            s.failErr(w, r, err)
            return
        }
        wrapped := wrapResult(res)
        out.Verification = &wrapped
    }
    s.ok(w, r, out)
}

func (s *Server) issuePassport(w http.ResponseWriter, r *http.Request) {
    var req ports.IssuePassportRequest
    if err := decodeJSON(r, &req); err != nil {
        s.fail(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON")
        return
    }
    if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.OwnerEmail) == "" {
        s.fail(w, r, http.StatusBadRequest, "MISSING_PARAMETERS", "Missing required parameters: code, owner_email")
        return
    }
    out, err := s.passports.Issue(r.Context(), req)
    if err != nil {
        s.failErr(w, r, err)
        return
    }
    s.respond(w, r, http.StatusCreated, map[string]any{
        "uid":                 out.Passport.UID,
        "qr_code_url":         out.Passport.QRCodeURL,
        "verification_status": out.Passport.Status,
        "product_info":        out.Product,
        "cross_validation":    out.Visual,
    })
}

func (s *Server) getPassport(w http.ResponseWriter, r *http.Request) {
    view, err := s.passports.Get(r.Context(), chi.URLParam(r, "uid"))
    if err != nil {
        s.failErr(w, r, err)
        return
    }
    w.Header().Set("Cache-Control", passportCacheControl)
    s.ok(w, r, view)
}

func (s *Server) transferPassport(w http.ResponseWriter, r *http.Request) {
    var req ports.TransferRequest
    if err := decodeJSON(r, &req); err != nil {
        s.fail(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON")
        return
    }
    p, err := s.passports.Transfer(r.Context(), chi.URLParam(r, "uid"), req)
    if err != nil {
        s.failErr(w, r, err)
        return
    }
    s.ok(w, r, p)
}

type crossValidateRequest struct {
    Code             string               `json:"code"`
    VisualAttributes domain.KitAttributes `json:"visual_attributes"`
}

func (s *Server) crossValidate(w http.ResponseWriter, r *http.Request) {
    var req crossValidateRequest
    if err := decodeJSON(r, &req); err != nil {
        s.fail(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON")
        return
    }
    res, err := s.passports.CrossValidate(r.Context(), req.Code, req.VisualAttributes)
    if err != nil {
        s.failErr(w, r, err)
        return
    }
    s.ok(w, r, res)
}
