package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultMongoDatabase   = "News-Latest"
	DefaultMongoCollection = "news"
)

// MongoStore keeps articles in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type mongoArticle struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Headline      string             `bson:"headline"`
	Title         string             `bson:"title"`
	Author        string             `bson:"author"`
	Time          string             `bson:"time"`
	Description   string             `bson:"description"`
	ImpactSummary string             `bson:"impactSummary,omitempty"`
	Image         string             `bson:"image"`
	Category      string             `bson:"category"`
	Source        string             `bson:"source"`
	URL           string             `bson:"url"`
	Published     bool               `bson:"published"`
	Zone          string             `bson:"zone"`
	Sentiment     *int               `bson:"sentiment,omitempty"`
	Weightage     string             `bson:"weightage,omitempty"`
	CreatedDate   string             `bson:"createddate"`
	Slug          string             `bson:"slug,omitempty"`
}

func toMongo(a domain.StoredArticle) mongoArticle {
	return mongoArticle{
		Headline:      a.Headline,
		Title:         a.Title,
		Author:        a.Author,
		Time:          a.Time,
		Description:   a.Description,
		ImpactSummary: a.ImpactSummary,
		Image:         a.Image,
		Category:      a.Category,
		Source:        a.Source,
		URL:           a.URL,
		Published:     a.Published,
		Zone:          string(a.Zone),
		Sentiment:     a.Sentiment,
		Weightage:     string(a.Weightage),
		CreatedDate:   a.CreatedDate,
		Slug:          a.Slug,
	}
}

func (m mongoArticle) domain() domain.StoredArticle {
	return domain.StoredArticle{
		ID:            m.ID.Hex(),
		Headline:      m.Headline,
		Title:         m.Title,
		Author:        m.Author,
		Time:          m.Time,
		Description:   m.Description,
		ImpactSummary: m.ImpactSummary,
		Image:         m.Image,
		Category:      m.Category,
		Source:        m.Source,
		URL:           m.URL,
		Published:     m.Published,
		Zone:          domain.Zone(m.Zone),
		Sentiment:     m.Sentiment,
		Weightage:     domain.Weightage(m.Weightage),
		CreatedDate:   m.CreatedDate,
		Slug:          m.Slug,
	}
}

// NewMongoStore connects to uri and pings the server.
func NewMongoStore(ctx context.Context, uri, database, collection string, timeout time.Duration) (*MongoStore, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("mongo uri is empty")
	}
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().ApplyURI(uri).SetConnectTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "url", Value: 1}}})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create url index: %w", err)
	}

	return &MongoStore{client: client, collection: coll}, nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (domain.StoredArticle, error) {
	var doc mongoArticle
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.StoredArticle{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StoredArticle{}, err
	}
	return doc.domain(), nil
}

func (s *MongoStore) FindByURL(ctx context.Context, url string) (domain.StoredArticle, error) {
	return s.findOne(ctx, bson.M{"url": normalizeURL(url)})
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (domain.StoredArticle, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return domain.StoredArticle{}, domain.ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) Create(ctx context.Context, a domain.StoredArticle) (domain.StoredArticle, error) {
	doc := toMongo(a)
	doc.URL = normalizeURL(doc.URL)
	doc.ID = primitive.NewObjectID()
	doc.Time = stamp()

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return domain.StoredArticle{}, fmt.Errorf("insert article: %w", err)
	}
	return doc.domain(), nil
}

func (s *MongoStore) Replace(ctx context.Context, url string, a domain.StoredArticle) (domain.StoredArticle, error) {
	existing, err := s.FindByURL(ctx, url)
	if err != nil {
		return domain.StoredArticle{}, err
	}
	oid, err := primitive.ObjectIDFromHex(existing.ID)
	if err != nil {
		return domain.StoredArticle{}, fmt.Errorf("stored id %q: %w", existing.ID, err)
	}

	doc := toMongo(a)
	doc.ID = oid
	doc.URL = normalizeURL(url)
	doc.Time = stamp()

	res, err := s.collection.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return domain.StoredArticle{}, fmt.Errorf("replace article: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.StoredArticle{}, domain.ErrNotFound
	}
	return doc.domain(), nil
}

func (s *MongoStore) ListAll(ctx context.Context) ([]domain.StoredArticle, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer cursor.Close(ctx)

	out := []domain.StoredArticle{}
	for cursor.Next(ctx) {
		var doc mongoArticle
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		out = append(out, doc.domain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Patch(ctx context.Context, id string, p domain.ArticlePatch) (domain.StoredArticle, error) {
	if p.Empty() {
		return s.FindByID(ctx, id)
	}
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return domain.StoredArticle{}, domain.ErrNotFound
	}

	set := patchFields(p)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoArticle
	err = s.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.StoredArticle{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StoredArticle{}, fmt.Errorf("patch article: %w", err)
	}
	return doc.domain(), nil
}

func (s *MongoStore) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrNotFound
	}
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// patchFields maps the non-nil patch fields to their stored column names.
func patchFields(p domain.ArticlePatch) map[string]any {
	set := map[string]any{}
	put := func(key string, v *string) {
		if v != nil {
			set[key] = *v
		}
	}
	put("headline", p.Headline)
	put("title", p.Title)
	put("author", p.Author)
	put("description", p.Description)
	put("impactSummary", p.ImpactSummary)
	put("image", p.Image)
	put("category", p.Category)
	put("source", p.Source)
	put("createddate", p.CreatedDate)
	put("slug", p.Slug)
	if p.Published != nil {
		set["published"] = *p.Published
	}
	if p.Zone != nil {
		set["zone"] = string(*p.Zone)
	}
	if p.Sentiment != nil {
		set["sentiment"] = *p.Sentiment
	}
	if p.Weightage != nil {
		set["weightage"] = string(*p.Weightage)
	}
	return set
}
