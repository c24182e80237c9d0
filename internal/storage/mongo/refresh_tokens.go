package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-wallet-service/internal/models"
	"github.com/pribylovaa/go-wallet-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// tokenDoc — представление refresh-токена в коллекции refresh_tokens.
type tokenDoc struct {
	Token     string    `bson:"token"`
	UserID    string    `bson:"user_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// SaveRefreshToken сохраняет новый refresh-токен.
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.mongo.SaveRefreshToken"

	doc := tokenDoc{
		Token:     token.Token,
		UserID:    token.UserID.String(),
		CreatedAt: token.CreatedAt.UTC().Truncate(time.Millisecond),
		ExpiresAt: token.ExpiresAt.UTC().Truncate(time.Millisecond),
	}

	if _, err := s.tokens.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshToken находит refresh-токен по его значению.
func (s *Storage) RefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const op = "storage.mongo.RefreshToken"

	var doc tokenDoc
	if err := s.tokens.FindOne(ctx, bson.D{{Key: "token", Value: token}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: parse user id: %w", op, err)
	}

	return &models.RefreshToken{
		Token:     doc.Token,
		UserID:    userID,
		CreatedAt: doc.CreatedAt.UTC(),
		ExpiresAt: doc.ExpiresAt.UTC(),
	}, nil
}

// DeleteRefreshToken удаляет refresh-токен по значению.
// Повторное удаление — no-op: гонка двух конкурентных удалений безвредна.
func (s *Storage) DeleteRefreshToken(ctx context.Context, token string) error {
	const op = "storage.mongo.DeleteRefreshToken"

	if _, err := s.tokens.DeleteOne(ctx, bson.D{{Key: "token", Value: token}}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpiredTokens удаляет все токены с expires_at <= now.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now time.Time) error {
	const op = "storage.mongo.DeleteExpiredTokens"

	filter := bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: now.UTC()}}}}
	if _, err := s.tokens.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
