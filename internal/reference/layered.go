package reference

import (
    "context"

    log "github.com/sirupsen/logrus"

    "kitcheck/internal/domain"
    "kitcheck/internal/ports"
)

// Layered answers era lookups from the reference store first and falls back
// to the bundled dataset when the store has nothing or fails. Callers never
// need to know which layer answered.
type Layered struct {
    primary  ports.EraReferenceRepository
    defaults *Dataset
    log      log.FieldLogger
}

var _ ports.EraReferenceRepository = (*Layered)(nil)

// NewLayered builds the lookup. primary may be nil.
func NewLayered(primary ports.EraReferenceRepository, defaults *Dataset, logger log.FieldLogger) *Layered {
    if logger == nil {
        logger = log.StandardLogger()
    }
    return &Layered{primary: primary, defaults: defaults, log: logger}
}

func (l *Layered) EraWindows(ctx context.Context, subject string, kind domain.AttributeKind) ([]domain.EraWindow, error) {
    if l.primary != nil {
        windows, err := l.primary.EraWindows(ctx, subject, kind)
        switch {
        case err != nil:
            l.log.WithFields(log.Fields{"subject": subject, "kind": kind}).Warnf("era lookup failed, using defaults: %v", err)
        case len(windows) > 0:
            return windows, nil
        }
    }
    if l.defaults == nil {
        return nil, nil
    }
    return l.defaults.EraWindows(ctx, subject, kind)
}

// Dataset exposes the default layer, e.g. for the colour suffix table.
func (l *Layered) Dataset() *Dataset { return l.defaults }
