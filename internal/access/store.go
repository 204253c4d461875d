package access

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"actionplus.app/internal/kv"
)

// UserRepository loads and saves the whole user collection.
type UserRepository interface {
	Load(ctx context.Context) ([]User, error)
	Save(ctx context.Context, users []User) error
}

var _ UserRepository = (*KVUserRepository)(nil)

// KVUserRepository stores users under kv.KeyUsers.
type KVUserRepository struct {
	store kv.Store
	log   logrus.FieldLogger
}

func NewKVUserRepository(store kv.Store, log logrus.FieldLogger) *KVUserRepository {
	return &KVUserRepository{store: store, log: log}
}

// Load seeds DefaultUsers when the key is absent. A corrupt blob reads as an
// empty collection and is replaced by the next Save.
func (r *KVUserRepository) Load(ctx context.Context) ([]User, error) {
	var users []User
	err := kv.LoadJSON(ctx, r.store, kv.KeyUsers, &users)
	switch {
	case err == nil:
		return users, nil
	case errors.Is(err, kv.ErrNotFound):
		users = DefaultUsers()
		if err := r.Save(ctx, users); err != nil {
			return nil, err
		}
		r.log.WithField("count", len(users)).Info("seeded default users")
		return users, nil
	case errors.Is(err, kv.ErrCorrupt):
		r.log.WithError(err).Warn("users collection unreadable, starting empty")
		return []User{}, nil
	default:
		return nil, err
	}
}

func (r *KVUserRepository) Save(ctx context.Context, users []User) error {
	return kv.SaveJSON(ctx, r.store, kv.KeyUsers, users)
}
