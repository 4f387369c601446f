package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	articlesBucket = []byte("articles")
	urlsBucket     = []byte("urls")
)

// BoltStore keeps articles in a local bbolt file. Records are JSON under their
// id; a second bucket maps url to id.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database file at path.
func NewBoltStore(path string, timeout time.Duration) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("bolt path is empty")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create bolt dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(articlesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(urlsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bolt buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func getArticle(tx *bolt.Tx, id string) (domain.StoredArticle, error) {
	raw := tx.Bucket(articlesBucket).Get([]byte(id))
	if raw == nil {
		return domain.StoredArticle{}, domain.ErrNotFound
	}
	var a domain.StoredArticle
	if err := json.Unmarshal(raw, &a); err != nil {
		return domain.StoredArticle{}, fmt.Errorf("decode article %s: %w", id, err)
	}
	return a, nil
}

func putArticle(tx *bolt.Tx, a domain.StoredArticle) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := tx.Bucket(articlesBucket).Put([]byte(a.ID), raw); err != nil {
		return err
	}
	return tx.Bucket(urlsBucket).Put([]byte(a.URL), []byte(a.ID))
}

func (s *BoltStore) FindByURL(_ context.Context, url string) (domain.StoredArticle, error) {
	var out domain.StoredArticle
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(urlsBucket).Get([]byte(normalizeURL(url)))
		if id == nil {
			return domain.ErrNotFound
		}
		var err error
		out, err = getArticle(tx, string(id))
		return err
	})
	return out, err
}

func (s *BoltStore) FindByID(_ context.Context, id string) (domain.StoredArticle, error) {
	var out domain.StoredArticle
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = getArticle(tx, strings.TrimSpace(id))
		return err
	})
	return out, err
}

func (s *BoltStore) Create(_ context.Context, a domain.StoredArticle) (domain.StoredArticle, error) {
	a.ID = uuid.New().String()
	a.URL = normalizeURL(a.URL)
	a.Time = stamp()

	err := s.db.Update(func(tx *bolt.Tx) error { return putArticle(tx, a) })
	if err != nil {
		return domain.StoredArticle{}, fmt.Errorf("insert article: %w", err)
	}
	return a, nil
}

func (s *BoltStore) Replace(_ context.Context, url string, a domain.StoredArticle) (domain.StoredArticle, error) {
	url = normalizeURL(url)
	err := s.db.Update(func(tx *bolt.Tx) error {
		id := tx.Bucket(urlsBucket).Get([]byte(url))
		if id == nil {
			return domain.ErrNotFound
		}
		a.ID = string(id)
		a.URL = url
		a.Time = stamp()
		return putArticle(tx, a)
	})
	if err != nil {
		return domain.StoredArticle{}, err
	}
	return a, nil
}

// ListAll returns every article, newest first.
func (s *BoltStore) ListAll(_ context.Context) ([]domain.StoredArticle, error) {
	out := []domain.StoredArticle{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(articlesBucket).ForEach(func(_, v []byte) error {
			var a domain.StoredArticle
			if err := json.Unmarshal(v, &a); err != nil {
				return nil
			}
			out = append(out, a)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].Time, out[j].Time) })
	return out, nil
}

func (s *BoltStore) Patch(_ context.Context, id string, p domain.ArticlePatch) (domain.StoredArticle, error) {
	var out domain.StoredArticle
	err := s.db.Update(func(tx *bolt.Tx) error {
		a, err := getArticle(tx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		p.Apply(&a)
		out = a
		return putArticle(tx, a)
	})
	return out, err
}

func (s *BoltStore) DeleteByID(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		a, err := getArticle(tx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		if err := tx.Bucket(articlesBucket).Delete([]byte(a.ID)); err != nil {
			return err
		}
		urls := tx.Bucket(urlsBucket)
		if cur := urls.Get([]byte(a.URL)); string(cur) == a.ID {
			return urls.Delete([]byte(a.URL))
		}
		return nil
	})
}

func (s *BoltStore) Close(context.Context) error {
	return s.db.Close()
}
