package main

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/go-chi/chi/v5"
    log "github.com/sirupsen/logrus"

    httpadapter "kitcheck/internal/adapters/http"
    "kitcheck/internal/adapters/memory"
    pg "kitcheck/internal/adapters/postgres"
    "kitcheck/internal/config"
    "kitcheck/internal/logging"
    "kitcheck/internal/ports"
    "kitcheck/internal/reference"
    codesvc "kitcheck/internal/services/codes"
    "kitcheck/internal/services/imaging"
    "kitcheck/internal/services/passports"
    "kitcheck/internal/services/verifier"
    "kitcheck/internal/workers/sideeffects"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type stores struct {
    products  ports.ProductCodeRepository
    blacklist ports.BlacklistRepository
    eras      ports.EraReferenceRepository
    audit     ports.VerificationLogger
    passports ports.PassportRepository
    pinger    ports.Pinger
    close     func()
}

func main() {
    cfg, err := config.Load()
    if err != nil && !errors.Is(err, config.ErrNoDatabase) {
        log.Fatalf("config: %v", err)
    }
    logFile, lerr := logging.Setup(cfg.LogLevel, cfg.LogFile)
    if lerr != nil {
        log.Fatalf("logging: %v", lerr)
    }
    defer logFile.Close()
    if err != nil {
        log.Warn(err)
    }

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    dataset, err := reference.LoadDefaults(cfg.ReferenceDataFile)
    if err != nil {
        log.Fatalf("reference data: %v", err)
    }

    st, err := openStores(ctx, cfg, dataset)
    if err != nil {
        log.Fatalf("store: %v", err)
    }
    defer st.close()

    runner := sideeffects.New(cfg.SideEffectQueue, 10*time.Second, log.WithField("component", "sideeffects"))
    runner.Start(ctx, cfg.SideEffectWorkers)
    go func() {
        for e := range runner.Errors() {
            log.WithField("task", e.Task).Debugf("side effect error drained: %v", e.Err)
        }
    }()

    verify := verifier.New(st.products, st.blacklist, reference.NewLayered(st.eras, dataset, nil), verifier.Config{
        LookupTimeout: cfg.LookupTimeout,
        Colors:        dataset,
        Audit:         st.audit,
        Queue:         runner,
        Logger:        log.WithField("component", "verifier"),
    })
    codes := codesvc.New(st.products, st.blacklist, cfg.MaxBatchCodes)
    analyzer := imaging.NewAnalyzer(log.WithField("component", "imaging"))
    dpp := passports.New(st.products, st.passports, passports.Config{
        CertificateBaseURL: cfg.CertificateBaseURL,
        Logger:             log.WithField("component", "passports"),
    })

    srv := httpadapter.New(verify, codes, dpp, analyzer, st.pinger, version, log.StandardLogger())
    r := chi.NewRouter()
    r.Mount("/", srv.Routes())

    httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
    errCh := make(chan error, 1)
    go func() { errCh <- httpSrv.ListenAndServe() }()
    log.Infof("listening on %s (%s)", cfg.ListenAddr, cfg.Env)

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
    select {
    case sig := <-sigCh:
        log.Infof("shutting down on %s", sig)
        shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
        defer done()
        if err := httpSrv.Shutdown(shutdownCtx); err != nil {
            log.Warnf("http shutdown: %v", err)
        }
        runner.Close()
        cancel()
    case err := <-errCh:
        runner.Close()
        log.Fatal(fmt.Errorf("server error: %w", err))
    }
}

// openStores picks Postgres when DATABASE_URL is set and the in-memory store
// otherwise.
func openStores(ctx context.Context, cfg config.Config, dataset *reference.Dataset) (stores, error) {
    if cfg.DatabaseURL == "" {
        mem := memory.New()
        if cfg.SeedFile != "" {
            if err := mem.SeedFile(cfg.SeedFile); err != nil {
                return stores{}, err
            }
        }
        log.Info("using in-memory reference store")
        return stores{
            products: mem.Products(), blacklist: mem.Blacklist(), eras: mem,
            audit: mem, passports: mem.Passports(), pinger: mem, close: func() {},
        }, nil
    }

    db, err := pg.Connect(ctx, cfg.DatabaseURL, int32(cfg.DBMaxConns))
    if err != nil {
        return stores{}, fmt.Errorf("db connect: %w", err)
    }
    sqlDB := db.SQL()
    closeAll := func() {
        _ = sqlDB.Close()
        db.Close()
    }
    if cfg.AutoMigrate {
        if err := pg.Migrate(ctx, sqlDB); err != nil {
            closeAll()
            return stores{}, fmt.Errorf("migrate: %w", err)
        }
        log.Info("migrations applied")
    }
    if cfg.SeedReference {
        if err := db.Eras().Import(ctx, dataset.Tables()); err != nil {
            closeAll()
            return stores{}, fmt.Errorf("seed reference: %w", err)
        }
        log.Info("reference dataset imported")
    }
    return stores{
        products: db.Products(), blacklist: db.Blacklist(), eras: db.Eras(),
        audit: pg.NewAuditLog(sqlDB), passports: db.Passports(), pinger: db, close: closeAll,
    }, nil
}
