package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrents/internal/models"
	"torrents/internal/store"
)

// torrentDoc is the stored torrent with its folded search fields. RatingRev
// is bumped on every comment change and guards UpdateRating.
type torrentDoc struct {
	models.Torrent  `bson:",inline"`
	TitleFold       string `bson:"title_fold"`
	DescriptionFold string `bson:"description_fold"`
	RatingRev       int64  `bson:"rating_rev"`
}

func (s *Store) CreateTorrent(ctx context.Context, t *models.Torrent) error {
	t.Categories = store.NormalizeCategories(t.Categories)
	if t.Images == nil {
		t.Images = []string{}
	}
	// the user lookup stands in for the foreign key the SQL schema has
	if _, err := s.GetUserByID(ctx, t.UploaderID); err != nil {
		return translate("create torrent", err)
	}
	if err := s.EnsureCategories(ctx, t.Categories); err != nil {
		return err
	}
	_, err := s.torrents().InsertOne(ctx, torrentDoc{
		Torrent:         *t,
		TitleFold:       store.Fold(t.Title),
		DescriptionFold: store.Fold(t.Description),
	})
	return translate("create torrent", err)
}

func (s *Store) GetTorrent(ctx context.Context, id string) (*models.Torrent, error) {
	var t models.Torrent
	if err := s.torrents().FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, translate("get torrent", err)
	}
	fillSlices(&t)
	return &t, nil
}

func (s *Store) SearchTorrents(ctx context.Context, q store.SearchQuery) ([]models.Torrent, error) {
	filter := bson.M{}
	if q.Title != "" {
		filter["title_fold"] = containsFold(q.Title)
	}
	if q.Description != "" {
		filter["description_fold"] = containsFold(q.Description)
	}
	if cats := store.NormalizeCategories(q.Categories); len(cats) > 0 {
		filter["categories"] = bson.M{"$in": cats}
	}
	dates := bson.M{}
	if q.From != nil {
		dates["$gte"] = q.From.UTC()
	}
	if q.To != nil {
		dates["$lte"] = q.To.UTC()
	}
	if len(dates) > 0 {
		filter["upload_date"] = dates
	}

	dir := 1
	if q.Desc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: q.SortColumn(), Value: dir}, {Key: "_id", Value: 1}}).
		SetLimit(int64(q.EffectiveLimit()))
	return s.findTorrents(ctx, "search torrents", filter, opts)
}

func (s *Store) IncrementDownloads(ctx context.Context, id string) error {
	res, err := s.torrents().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"download_count": int64(1)}})
	return matchedOrNotFound("increment downloads", res, err)
}

func (s *Store) DeleteTorrent(ctx context.Context, id string) error {
	res, err := s.torrents().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate("delete torrent", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	_, err = s.comments().DeleteMany(ctx, bson.M{"torrent_id": id})
	return translate("delete torrent comments", err)
}

func (s *Store) SetAverageRating(ctx context.Context, id string, rating float64) error {
	res, err := s.torrents().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"average_rating": rating}})
	return matchedOrNotFound("set average rating", res, err)
}

// UpdateRating retries until no comment of the torrent changed between
// reading the ratings and storing the result.
func (s *Store) UpdateRating(ctx context.Context, id string, fn func(avg float64, count int64) float64) (float64, error) {
	for {
		var doc struct {
			Rev int64 `bson:"rating_rev"`
		}
		err := s.torrents().FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"rating_rev": 1})).Decode(&doc)
		if err != nil {
			return 0, translate("update rating", err)
		}
		avg, n, err := s.AverageRating(ctx, id)
		if err != nil {
			return 0, err
		}
		value := fn(avg, n)
		res, err := s.torrents().UpdateOne(ctx,
			bson.M{"_id": id, "rating_rev": doc.Rev},
			bson.M{"$set": bson.M{"average_rating": value}})
		if err != nil {
			return 0, translate("update rating", err)
		}
		if res.MatchedCount == 1 {
			return value, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
}

// bumpRatingRev marks the torrent's comments as changed.
func (s *Store) bumpRatingRev(ctx context.Context, torrentID string) error {
	_, err := s.torrents().UpdateOne(ctx, bson.M{"_id": torrentID}, bson.M{"$inc": bson.M{"rating_rev": int64(1)}})
	return translate("bump rating revision", err)
}

func (s *Store) TopByDownloads(ctx context.Context, limit int, w store.Window) ([]models.Torrent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "download_count", Value: -1}, {Key: "upload_date", Value: -1}}).
		SetLimit(int64(limit))
	return s.findTorrents(ctx, "top torrents by downloads", windowFilter(w), opts)
}

func (s *Store) TopByRating(ctx context.Context, limit int) ([]models.Torrent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "average_rating", Value: -1}, {Key: "download_count", Value: -1}}).
		SetLimit(int64(limit))
	return s.findTorrents(ctx, "top torrents by rating", bson.M{"average_rating": bson.M{"$gte": 0}}, opts)
}

func (s *Store) CategoryStats(ctx context.Context, w store.Window) ([]models.CategoryStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: windowFilter(w)}},
		{{Key: "$unwind", Value: "$categories"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$categories"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total_downloads", Value: bson.D{{Key: "$sum", Value: "$download_count"}}},
			{Key: "avg_rating", Value: bson.D{{Key: "$avg", Value: "$average_rating"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cur, err := s.torrents().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate("category stats", err)
	}
	stats := []models.CategoryStat{}
	if err := cur.All(ctx, &stats); err != nil {
		return nil, translate("category stats", err)
	}
	return stats, nil
}

func (s *Store) Totals(ctx context.Context, since time.Time) (models.Totals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "torrents", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "downloads", Value: bson.D{{Key: "$sum", Value: "$download_count"}}},
			{Key: "new_since", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{bson.D{{Key: "$gte", Value: bson.A{"$upload_date", since.UTC()}}}, 1, 0}},
			}}}},
		}}},
	}
	cur, err := s.torrents().Aggregate(ctx, pipeline)
	if err != nil {
		return models.Totals{}, translate("torrent totals", err)
	}
	var rows []models.Totals
	if err := cur.All(ctx, &rows); err != nil {
		return models.Totals{}, translate("torrent totals", err)
	}
	if len(rows) == 0 {
		return models.Totals{}, nil
	}
	return rows[0], nil
}

func (s *Store) findTorrents(ctx context.Context, op string, filter any, opts *options.FindOptions) ([]models.Torrent, error) {
	cur, err := s.torrents().Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(op, err)
	}
	torrents := []models.Torrent{}
	if err := cur.All(ctx, &torrents); err != nil {
		return nil, translate(op, err)
	}
	for i := range torrents {
		fillSlices(&torrents[i])
	}
	return torrents, nil
}

func windowFilter(w store.Window) bson.M {
	dates := bson.M{}
	if !w.From.IsZero() {
		dates["$gte"] = w.From.UTC()
	}
	if !w.To.IsZero() {
		dates["$lte"] = w.To.UTC()
	}
	if len(dates) == 0 {
		return bson.M{}
	}
	return bson.M{"upload_date": dates}
}

func fillSlices(t *models.Torrent) {
	if t.Categories == nil {
		t.Categories = []string{}
	}
	if t.Images == nil {
		t.Images = []string{}
	}
}
