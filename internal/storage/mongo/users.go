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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userDoc — представление пользователя в коллекции users.
// ID хранится строкой (UUID), время — в миллисекундах (mongo DateTime).
type userDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Balance      int64     `bson:"balance"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toUserDoc(u *models.User) userDoc {
	return userDoc{
		ID:           u.ID.String(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Balance:      u.Balance,
		CreatedAt:    u.CreatedAt.UTC().Truncate(time.Millisecond),
		UpdatedAt:    u.UpdatedAt.UTC().Truncate(time.Millisecond),
	}
}

func (d userDoc) toModel() (*models.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}

	return &models.User{
		ID:           id,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Balance:      d.Balance,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

// SaveUser создает нового пользователя.
// Конфликт по уникальному индексу email транслируется в ErrAlreadyExists.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.mongo.SaveUser"

	if _, err := s.users.InsertOne(ctx, toUserDoc(user)); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByEmail находит пользователя по email (чувствительно к регистру).
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.mongo.UserByEmail"

	return s.findUser(ctx, op, bson.D{{Key: "email", Value: email}})
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.mongo.UserByID"

	return s.findUser(ctx, op, bson.D{{Key: "_id", Value: id.String()}})
}

func (s *Storage) findUser(ctx context.Context, op string, filter bson.D) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// ChangeBalance атомарно изменяет баланс пользователя на delta внутри
// серверной транзакции. Условие balance >= -delta входит в фильтр update,
// поэтому конкурентные списания не могут увести баланс в минус, а
// конкурентные пополнения не теряются ($inc). Транзакция фиксируется только
// на успешном пути; при ошибке WithTransaction выполняет abort, сессия
// закрывается в любом случае.
func (s *Storage) ChangeBalance(ctx context.Context, id uuid.UUID, delta int64) (*models.User, error) {
	const op = "storage.mongo.ChangeBalance"

	sess, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("%s: start session: %w", op, err)
	}
	defer sess.EndSession(ctx)

	res, err := sess.WithTransaction(ctx, func(sc mongodriver.SessionContext) (interface{}, error) {
		filter := bson.D{{Key: "_id", Value: id.String()}}
		if delta < 0 {
			filter = append(filter, bson.E{Key: "balance", Value: bson.D{{Key: "$gte", Value: -delta}}})
		}

		update := bson.D{
			{Key: "$inc", Value: bson.D{{Key: "balance", Value: delta}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now().UTC().Truncate(time.Millisecond)}}},
		}

		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		var doc userDoc
		err := s.users.FindOneAndUpdate(sc, filter, update, opts).Decode(&doc)
		if err == nil {
			return doc, nil
		}

		if !errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, err
		}

		// Фильтр не совпал: либо пользователя нет, либо не хватает баланса.
		cnt, cntErr := s.users.CountDocuments(sc, bson.D{{Key: "_id", Value: id.String()}})
		if cntErr != nil {
			return nil, cntErr
		}
		if cnt == 0 {
			return nil, storage.ErrNotFound
		}

		return nil, storage.ErrInsufficientBalance
	})

	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInsufficientBalance) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	doc, ok := res.(userDoc)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected transaction result", op)
	}

	user, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
