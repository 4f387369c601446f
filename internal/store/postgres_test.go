package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

const storedID = "5f0c4f5e-8a41-4d4e-9a43-2b6f7e8c1d20"

func mockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return newPostgresStore(sqlx.NewDb(db, "postgres")), mock
}

func storedRow(published bool) *sqlmock.Rows {
	return sqlmock.NewRows(pgColumns).AddRow(
		storedID, "old", "", "", "2025-10-06T04:00:05.000000000Z", "old body", "", "", "market", "cnbc",
		"https://a/1", published, "india", 4, "High", "06-10-2025-09:30", "old",
	)
}

func TestPostgresReplaceKeepsIDAndOverwrites(t *testing.T) {
	t.Parallel()
	st, mock := mockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + strings.Join(pgColumns, ", ") + " FROM news WHERE url = $1 LIMIT 1")).
		WithArgs("https://a/1").
		WillReturnRows(storedRow(true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE news SET headline = $1, title = $2")).
		WithArgs(
			"second", "", "", sqlmock.AnyArg(), "", "", "", "", "",
			"https://a/1", false, "", nil, "", "", "",
			storedID,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := st.Replace(context.Background(), " https://a/1 ", domain.StoredArticle{Headline: "second"})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got.ID != storedID || got.Published || got.Sentiment != nil || got.Time == "" {
		t.Fatalf("unexpected replaced record %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresPatchWritesMappedColumns(t *testing.T) {
	t.Parallel()
	st, mock := mockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM news WHERE id = $1 LIMIT 1")).
		WithArgs(storedID).
		WillReturnRows(storedRow(false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE news SET created_date = $1 WHERE id = $2")).
		WithArgs("07-10-2025-10:00", storedID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created := "07-10-2025-10:00"
	got, err := st.Patch(context.Background(), storedID, domain.ArticlePatch{CreatedDate: &created})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if got.CreatedDate != created || got.Headline != "old" || got.Sentiment == nil || *got.Sentiment != 4 {
		t.Fatalf("unexpected patched record %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresNotFound(t *testing.T) {
	t.Parallel()
	st, mock := mockPostgres(t)

	if _, err := st.FindByID(context.Background(), "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a malformed id, got %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM news WHERE url = $1 LIMIT 1")).
		WithArgs("https://a/missing").
		WillReturnRows(sqlmock.NewRows(pgColumns))
	if _, err := st.Replace(context.Background(), "https://a/missing", domain.StoredArticle{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on replace, got %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM news WHERE id = $1")).
		WithArgs(storedID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := st.DeleteByID(context.Background(), storedID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
