package mongostore

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrents/internal/models"
	"torrents/internal/store"
)

// userDoc is the stored user with its folded username for SearchUsers.
type userDoc struct {
	models.User  `bson:",inline"`
	UsernameFold string `bson:"username_fold"`
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.users().InsertOne(ctx, userDoc{User: *u, UsernameFold: store.Fold(u.Username)})
	return translate("create user", err)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "get user", bson.M{"_id": id})
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	u, err := s.findUser(ctx, "get user by login", bson.M{"username": login})
	if !errors.Is(err, store.ErrNotFound) {
		return u, err
	}
	return s.findUser(ctx, "get user by login", bson.M{"email": login})
}

func (s *Store) findUser(ctx context.Context, op string, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.users().FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(op, err)
	}
	return &u, nil
}

func (s *Store) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	n, err := s.users().CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}})
	if err != nil {
		return false, translate("check user exists", err)
	}
	return n > 0, nil
}

func (s *Store) SearchUsers(ctx context.Context, fragment string, limit int) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}}).SetLimit(int64(limit))
	cur, err := s.users().Find(ctx, bson.M{"username_fold": containsFold(fragment)}, opts)
	if err != nil {
		return nil, translate("search users", err)
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, translate("search users", err)
	}
	return users, nil
}

func (s *Store) BanUser(ctx context.Context, id string) error {
	res, err := s.users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_banned": true}})
	return matchedOrNotFound("ban user", res, err)
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.users().CountDocuments(ctx, bson.D{})
	return n, translate("count users", err)
}

// containsFold matches *_fold fields containing the folded fragment. The
// fragment is quoted so user input never becomes a pattern.
func containsFold(fragment string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(store.Fold(fragment))}
}
