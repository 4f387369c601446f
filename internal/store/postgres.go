package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS news(
  id UUID PRIMARY KEY,
  headline TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  author TEXT NOT NULL DEFAULT '',
  time TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  impact_summary TEXT NOT NULL DEFAULT '',
  image TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL,
  published BOOLEAN NOT NULL DEFAULT FALSE,
  zone TEXT NOT NULL DEFAULT '',
  sentiment INTEGER,
  weightage TEXT NOT NULL DEFAULT '',
  created_date TEXT NOT NULL DEFAULT '',
  slug TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_news_url ON news(url);
CREATE INDEX IF NOT EXISTS idx_news_time ON news(time);
`

var pgColumns = []string{
	"id", "headline", "title", "author", "time", "description", "impact_summary", "image",
	"category", "source", "url", "published", "zone", "sentiment", "weightage", "created_date", "slug",
}

// patch keys that differ from their column name
var pgPatchColumns = map[string]string{
	"impactSummary": "impact_summary",
	"createddate":   "created_date",
}

// PostgresStore keeps articles in a Postgres table.
type PostgresStore struct {
	db *sqlx.DB
	qb sq.StatementBuilderType
}

type pgArticle struct {
	ID            string        `db:"id"`
	Headline      string        `db:"headline"`
	Title         string        `db:"title"`
	Author        string        `db:"author"`
	Time          string        `db:"time"`
	Description   string        `db:"description"`
	ImpactSummary string        `db:"impact_summary"`
	Image         string        `db:"image"`
	Category      string        `db:"category"`
	Source        string        `db:"source"`
	URL           string        `db:"url"`
	Published     bool          `db:"published"`
	Zone          string        `db:"zone"`
	Sentiment     sql.NullInt64 `db:"sentiment"`
	Weightage     string        `db:"weightage"`
	CreatedDate   string        `db:"created_date"`
	Slug          string        `db:"slug"`
}

func (r pgArticle) domain() domain.StoredArticle {
	a := domain.StoredArticle{
		ID:            r.ID,
		Headline:      r.Headline,
		Title:         r.Title,
		Author:        r.Author,
		Time:          r.Time,
		Description:   r.Description,
		ImpactSummary: r.ImpactSummary,
		Image:         r.Image,
		Category:      r.Category,
		Source:        r.Source,
		URL:           r.URL,
		Published:     r.Published,
		Zone:          domain.Zone(r.Zone),
		Weightage:     domain.Weightage(r.Weightage),
		CreatedDate:   r.CreatedDate,
		Slug:          r.Slug,
	}
	if r.Sentiment.Valid {
		v := int(r.Sentiment.Int64)
		a.Sentiment = &v
	}
	return a
}

func rowValues(a domain.StoredArticle) []any {
	var sentiment any
	if a.Sentiment != nil {
		sentiment = *a.Sentiment
	}
	return []any{
		a.ID, a.Headline, a.Title, a.Author, a.Time, a.Description, a.ImpactSummary, a.Image,
		a.Category, a.Source, a.URL, a.Published, string(a.Zone), sentiment, string(a.Weightage), a.CreatedDate, a.Slug,
	}
}

// NewPostgresStore opens dsn and creates the news table when missing.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := RunMigrations(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return newPostgresStore(db), nil
}

func newPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// RunMigrations creates the news table and its indexes.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, pgSchema)
	return err
}

func (s *PostgresStore) selectOne(ctx context.Context, where sq.Sqlizer) (domain.StoredArticle, error) {
	query, args, err := s.qb.Select(pgColumns...).From("news").Where(where).Limit(1).ToSql()
	if err != nil {
		return domain.StoredArticle{}, err
	}
	var row pgArticle
	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoredArticle{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StoredArticle{}, err
	}
	return row.domain(), nil
}

func (s *PostgresStore) FindByURL(ctx context.Context, url string) (domain.StoredArticle, error) {
	return s.selectOne(ctx, sq.Eq{"url": normalizeURL(url)})
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (domain.StoredArticle, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return domain.StoredArticle{}, domain.ErrNotFound
	}
	return s.selectOne(ctx, sq.Eq{"id": strings.TrimSpace(id)})
}

func (s *PostgresStore) Create(ctx context.Context, a domain.StoredArticle) (domain.StoredArticle, error) {
	a.ID = uuid.New().String()
	a.URL = normalizeURL(a.URL)
	a.Time = stamp()

	query, args, err := s.qb.Insert("news").Columns(pgColumns...).Values(rowValues(a)...).ToSql()
	if err != nil {
		return domain.StoredArticle{}, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return domain.StoredArticle{}, fmt.Errorf("insert article: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Replace(ctx context.Context, url string, a domain.StoredArticle) (domain.StoredArticle, error) {
	existing, err := s.FindByURL(ctx, url)
	if err != nil {
		return domain.StoredArticle{}, err
	}
	a.ID = existing.ID
	a.URL = normalizeURL(url)
	a.Time = stamp()

	values := rowValues(a)
	upd := s.qb.Update("news").Where(sq.Eq{"id": a.ID})
	for i, col := range pgColumns {
		if col == "id" {
			continue
		}
		upd = upd.Set(col, values[i])
	}
	query, args, err := upd.ToSql()
	if err != nil {
		return domain.StoredArticle{}, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return domain.StoredArticle{}, fmt.Errorf("replace article: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]domain.StoredArticle, error) {
	query, args, err := s.qb.Select(pgColumns...).From("news").OrderBy("time DESC").ToSql()
	if err != nil {
		return nil, err
	}
	rows := []pgArticle{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	out := make([]domain.StoredArticle, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func (s *PostgresStore) Patch(ctx context.Context, id string, p domain.ArticlePatch) (domain.StoredArticle, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil || p.Empty() {
		return current, err
	}

	upd := s.qb.Update("news").Where(sq.Eq{"id": current.ID})
	for key, v := range patchFields(p) {
		col := key
		if mapped, ok := pgPatchColumns[key]; ok {
			col = mapped
		}
		upd = upd.Set(col, v)
	}
	query, args, err := upd.ToSql()
	if err != nil {
		return domain.StoredArticle{}, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return domain.StoredArticle{}, fmt.Errorf("patch article: %w", err)
	}

	p.Apply(&current)
	return current, nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return domain.ErrNotFound
	}
	query, args, err := s.qb.Delete("news").Where(sq.Eq{"id": strings.TrimSpace(id)}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close(context.Context) error {
	return s.db.Close()
}
