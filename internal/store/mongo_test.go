package store

import (
	"context"
	"errors"
	"testing"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("replace keeps the id and overwrites every field", func(mt *mtest.T) {
		st := &MongoStore{collection: mt.Coll}
		oid := primitive.NewObjectID()
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: oid},
				{Key: "url", Value: "https://a/1"},
				{Key: "headline", Value: "old"},
				{Key: "published", Value: true},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		got, err := st.Replace(context.Background(), " https://a/1 ", domain.StoredArticle{Headline: "second"})
		if err != nil {
			mt.Fatalf("Replace: %v", err)
		}
		if got.ID != oid.Hex() || got.URL != "https://a/1" || got.Published || got.Headline != "second" {
			mt.Fatalf("unexpected replaced record %+v", got)
		}

		_ = mt.GetStartedEvent() // find
		update := mt.GetStartedEvent()
		if update == nil || update.CommandName != "update" {
			mt.Fatalf("expected an update command, got %+v", update)
		}
		published, ok := update.Command.Lookup("updates", "0", "u", "published").BooleanOK()
		if !ok || published {
			mt.Fatalf("replacement document should reset published, got %v (%v)", published, ok)
		}
		if id, ok := update.Command.Lookup("updates", "0", "q", "_id").ObjectIDOK(); !ok || id != oid {
			mt.Fatalf("replace should target the stored id, got %v", id)
		}
	})

	mt.Run("replace of an unknown url", func(mt *mtest.T) {
		st := &MongoStore{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		if _, err := st.Replace(context.Background(), "https://a/missing", domain.StoredArticle{}); !errors.Is(err, domain.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("patch sets only the given fields", func(mt *mtest.T) {
		st := &MongoStore{collection: mt.Coll}
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: oid},
			{Key: "headline", Value: "kept"},
			{Key: "published", Value: true},
			{Key: "zone", Value: "world"},
		}}))

		published := true
		zone := domain.ZoneWorld
		got, err := st.Patch(context.Background(), oid.Hex(), domain.ArticlePatch{Published: &published, Zone: &zone})
		if err != nil {
			mt.Fatalf("Patch: %v", err)
		}
		if got.ID != oid.Hex() || !got.Published || got.Headline != "kept" {
			mt.Fatalf("unexpected patched record %+v", got)
		}

		cmd := mt.GetStartedEvent()
		if cmd == nil || cmd.CommandName != "findAndModify" {
			mt.Fatalf("expected findAndModify, got %+v", cmd)
		}
		set, ok := cmd.Command.Lookup("update", "$set").DocumentOK()
		if !ok {
			mt.Fatalf("expected a $set document")
		}
		elems, _ := set.Elements()
		if len(elems) != 2 {
			mt.Fatalf("expected two patched fields, got %v", set)
		}
		if z, _ := set.Lookup("zone").StringValueOK(); z != "world" {
			mt.Fatalf("unexpected zone %q", z)
		}
	})

	mt.Run("delete and find with malformed or unknown ids", func(mt *mtest.T) {
		st := &MongoStore{collection: mt.Coll}
		if err := st.DeleteByID(context.Background(), "not-an-object-id"); !errors.Is(err, domain.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound for a malformed id, got %v", err)
		}
		if _, err := st.FindByID(context.Background(), "zzz"); !errors.Is(err, domain.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound for a malformed id, got %v", err)
		}

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		if err := st.DeleteByID(context.Background(), primitive.NewObjectID().Hex()); !errors.Is(err, domain.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound for an unknown id, got %v", err)
		}
	})
}

func TestPatchFieldsNames(t *testing.T) {
	t.Parallel()

	headline, created := "h", "06-10-2025-09:30"
	sentiment := 0
	weight := domain.WeightageHigh
	got := patchFields(domain.ArticlePatch{Headline: &headline, CreatedDate: &created, Sentiment: &sentiment, Weightage: &weight})
	if len(got) != 4 {
		t.Fatalf("expected 4 fields, got %v", got)
	}
	if got["headline"] != "h" || got["createddate"] != created || got["sentiment"] != 0 || got["weightage"] != "High" {
		t.Fatalf("unexpected fields %v", got)
	}
	if len(patchFields(domain.ArticlePatch{})) != 0 {
		t.Fatalf("empty patch should set nothing")
	}
}
