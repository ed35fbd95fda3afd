package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrents/internal/models"
	"torrents/internal/store"
)

func (s *Store) EnsureCategories(ctx context.Context, names []string) error {
	names = store.NormalizeCategories(names)
	if len(names) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(names))
	for _, name := range names {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": name}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{"_id": name}}).
			SetUpsert(true))
	}
	_, err := s.categories().BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return translate("ensure categories", err)
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	cur, err := s.categories().Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, translate("list categories", err)
	}
	var cats []models.Category
	if err := cur.All(ctx, &cats); err != nil {
		return nil, translate("list categories", err)
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names, nil
}
