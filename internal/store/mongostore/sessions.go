package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"torrents/internal/models"
)

func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	_, err := s.sessions().InsertOne(ctx, sess)
	return translate("create session", err)
}

func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	if err := s.sessions().FindOne(ctx, bson.M{"_id": id}).Decode(&sess); err != nil {
		return nil, translate("get session", err)
	}
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.sessions().DeleteOne(ctx, bson.M{"_id": id})
	return translate("delete session", err)
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := s.sessions().DeleteMany(ctx, bson.M{"user_id": userID})
	return translate("delete user sessions", err)
}

func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.sessions().DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now.UTC()}})
	if err != nil {
		return 0, translate("purge sessions", err)
	}
	return res.DeletedCount, nil
}
