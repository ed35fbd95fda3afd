package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrents/internal/models"
	"torrents/internal/store"
)

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	doc := *c
	doc.Username = ""
	doc.Replies = nil
	if _, err := s.comments().InsertOne(ctx, doc); err != nil {
		return translate("create comment", err)
	}
	return s.bumpRatingRev(ctx, c.TorrentID)
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	comments, err := s.aggregateComments(ctx, "get comment", bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, store.ErrNotFound
	}
	return &comments[0], nil
}

func (s *Store) ListComments(ctx context.Context, torrentID string) ([]models.Comment, error) {
	return s.aggregateComments(ctx, "list comments", bson.D{{Key: "torrent_id", Value: torrentID}})
}

// aggregateComments returns matching comments oldest first, joined with the
// author's username.
func (s *Store) aggregateComments(ctx context.Context, op string, match bson.D) ([]models.Comment, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "localField", Value: "user_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "author"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "username", Value: bson.D{{Key: "$ifNull", Value: bson.A{
				bson.D{{Key: "$arrayElemAt", Value: bson.A{"$author.username", 0}}}, "",
			}}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "author", Value: 0}}}},
	}
	cur, err := s.comments().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(op, err)
	}
	comments := []models.Comment{}
	if err := cur.All(ctx, &comments); err != nil {
		return nil, translate(op, err)
	}
	return comments, nil
}

// DeleteComment removes the comment and every reply below it.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	var root struct {
		TorrentID string `bson:"torrent_id"`
	}
	err := s.comments().FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"torrent_id": 1})).Decode(&root)
	if err != nil {
		return translate("delete comment", err)
	}

	ids := []string{id}
	frontier := []string{id}
	for len(frontier) > 0 {
		cur, err := s.comments().Find(ctx, bson.M{"parent_id": bson.M{"$in": frontier}},
			options.Find().SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return translate("delete comment", err)
		}
		var children []struct {
			ID string `bson:"_id"`
		}
		if err := cur.All(ctx, &children); err != nil {
			return translate("delete comment", err)
		}
		frontier = frontier[:0]
		for _, c := range children {
			ids = append(ids, c.ID)
			frontier = append(frontier, c.ID)
		}
	}

	if _, err := s.comments().DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return translate("delete comment", err)
	}
	return s.bumpRatingRev(ctx, root.TorrentID)
}

func (s *Store) AverageRating(ctx context.Context, torrentID string) (float64, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "torrent_id", Value: torrentID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := s.comments().Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, translate("average rating", err)
	}
	var rows []struct {
		Avg   float64 `bson:"avg"`
		Count int64   `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, 0, translate("average rating", err)
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Avg, rows[0].Count, nil
}

func (s *Store) CountComments(ctx context.Context) (int64, error) {
	n, err := s.comments().CountDocuments(ctx, bson.D{})
	return n, translate("count comments", err)
}
