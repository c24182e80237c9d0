package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pribylovaa/go-wallet-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection  = "users"
	tokensCollection = "refresh_tokens"
	defaultDBName    = "wallet"
)

// Storage — адаптер MongoDB: подключение, коллекции, индексы.
type Storage struct {
	client *mongodriver.Client
	db     *mongodriver.Database
	users  *mongodriver.Collection
	tokens *mongodriver.Collection
}

// New подключается к MongoDB, проверяет соединение и обеспечивает индексацию.
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage.mongo.New"

	if dbURL == "" {
		return nil, fmt.Errorf("%s: empty db url", op)
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(dbURL))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	db := cli.Database(databaseFromURI(dbURL))

	s := &Storage{
		client: cli,
		db:     db,
		users:  db.Collection(usersCollection),
		tokens: db.Collection(tokensCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}

	return s, nil
}

// Close разрывает соединение с MongoDB.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ensureIndexes создает индексы, на которые опирается сервис:
//   - уникальность email — источник истины для конфликтов регистрации;
//   - уникальность значения refresh-токена;
//   - expires_at — для периодической чистки просроченных токенов.
func (s *Storage) ensureIndexes(ctx context.Context) error {
	const op = "storage.mongo.ensureIndexes"

	_, err := s.users.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("users_email_unique").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("%s: users: %w", op, err)
	}

	tokenModels := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetName("tokens_token_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("tokens_expires_at"),
		},
	}

	if _, err := s.tokens.Indexes().CreateMany(ctx, tokenModels); err != nil {
		return fmt.Errorf("%s: tokens: %w", op, err)
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из URI.
// Если оно отсутствует — возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	return defaultDBName
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
