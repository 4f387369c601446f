package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// Store persists articles. URL is the natural key: callers look a record up by
// URL before creating it, the store does not enforce uniqueness on its own.
// Lookups that match nothing return domain.ErrNotFound.
type Store interface {
	FindByURL(ctx context.Context, url string) (domain.StoredArticle, error)
	FindByID(ctx context.Context, id string) (domain.StoredArticle, error)
	Create(ctx context.Context, a domain.StoredArticle) (domain.StoredArticle, error)
	// Replace overwrites every field of the record stored under url. The id is kept.
	Replace(ctx context.Context, url string, a domain.StoredArticle) (domain.StoredArticle, error)
	ListAll(ctx context.Context) ([]domain.StoredArticle, error)
	Patch(ctx context.Context, id string, p domain.ArticlePatch) (domain.StoredArticle, error)
	DeleteByID(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

// Config selects and configures the backing store.
type Config struct {
	Driver      string
	MongoURI    string
	Database    string
	Collection  string
	PostgresDSN string
	BoltPath    string
	Timeout     time.Duration
}

// Open builds the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.Database, cfg.Collection, cfg.Timeout)
	case DriverPostgres:
		return NewPostgresStore(ctx, cfg.PostgresDSN)
	case DriverBolt:
		return NewBoltStore(cfg.BoltPath, cfg.Timeout)
	default:
		return nil, fmt.Errorf("store driver %q is not supported", cfg.Driver)
	}
}

// now is the persistence timestamp written into StoredArticle.Time.
var now = func() time.Time { return time.Now().UTC() }

// TimeLayout is RFC 3339 with a fixed nine digit fraction, so stored times
// order correctly as strings.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func stamp() string { return now().Format(TimeLayout) }

// newer reports whether time a is after time b. Records written with a
// variable width fraction are parsed before comparing.
func newer(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA != nil || errB != nil {
		return a > b
	}
	return ta.After(tb)
}

func normalizeURL(u string) string { return strings.TrimSpace(u) }
