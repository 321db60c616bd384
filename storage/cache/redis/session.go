package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/chat"
)

const keyPrefix = "utulivu:chat:temp:"

// Open connects to Redis and checks the connection.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

type sessionStore struct {
	client *redis.Client
}

var _ chat.SessionStore = (*sessionStore)(nil) // interface compliance check

func NewSessionStore(client *redis.Client) *sessionStore {
	return &sessionStore{client: client}
}

func key(id string) string {
	return keyPrefix + id
}

func (s *sessionStore) Save(ctx context.Context, ts chat.TempSession, ttl time.Duration) error {
	data, err := json.Marshal(ts)
	if err != nil {
		return errors.Wrap(err, "encoding temporary session")
	}
	if err = s.client.Set(ctx, key(ts.ID), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "saving temporary session")
	}
	return nil
}

func decode(data string, err error) (chat.TempSession, error) {
	if err == redis.Nil {
		return chat.TempSession{}, chat.ErrTempSessionNotFound
	}
	if err != nil {
		return chat.TempSession{}, errors.Wrap(err, "reading temporary session")
	}
	var ts chat.TempSession
	if err = json.Unmarshal([]byte(data), &ts); err != nil {
		return chat.TempSession{}, errors.Wrap(err, "decoding temporary session")
	}
	return ts, nil
}

func (s *sessionStore) Get(ctx context.Context, id string) (chat.TempSession, error) {
	return decode(s.client.Get(ctx, key(id)).Result())
}

// Take relies on GETDEL, so that a session is only taken once.
func (s *sessionStore) Take(ctx context.Context, id string) (chat.TempSession, error) {
	return decode(s.client.GetDel(ctx, key(id)).Result())
}
