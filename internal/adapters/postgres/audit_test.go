package postgres

import (
    "context"
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "kitcheck/internal/domain"
)

func TestAuditLog_LogVerification(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()

    at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
    entry := domain.VerificationLogEntry{
        Code:            "CZ3984-100",
        Verdict:         domain.VerdictProbablyAuthentic,
        ConfidenceScore: 89,
        Signals: []domain.SignalSummary{
            {ID: domain.SignalBlacklistCheck, Value: domain.SignalPass},
            {ID: domain.SignalDatabaseMatch, Value: domain.SignalUnknown},
        },
        CheckedAt: at,
    }

    mock.ExpectExec(regexp.QuoteMeta(insertVerificationLog)).
        WithArgs("CZ3984-100", nil, "probably_authentic", 89,
            `[{"id":"blacklist_check","value":"pass"},{"id":"database_match","value":"unknown"}]`, at).
        WillReturnResult(sqlmock.NewResult(1, 1))

    require.NoError(t, NewAuditLog(db).LogVerification(context.Background(), entry))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLog_BrandFilterAndFailure(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()

    mock.ExpectExec("INSERT INTO verification_logs").
        WithArgs("IS7462", "Adidas", "uncertain", 55, "[]", sqlmock.AnyArg()).
        WillReturnError(errors.New("relation does not exist"))

    err = NewAuditLog(db).LogVerification(context.Background(), domain.VerificationLogEntry{
        Code: "IS7462", BrandFilter: "Adidas", Verdict: domain.VerdictUncertain, ConfidenceScore: 55,
        Signals: []domain.SignalSummary{}, CheckedAt: time.Now(),
    })
    assert.ErrorContains(t, err, "relation does not exist")
    assert.NoError(t, mock.ExpectationsWereMet())
}
