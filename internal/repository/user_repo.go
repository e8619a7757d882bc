package repository

import (
	"context"

	"vidtube/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// UserRepository is the read-only view of accounts used for identity checks and enrichment.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindIdentities(ctx context.Context, ids []string) (map[string]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Select(model.IdentityColumns).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindIdentities loads the identity columns of several users in one query
func (r *userRepository) FindIdentities(ctx context.Context, ids []string) (map[string]model.User, error) {
	out := make(map[string]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []model.User
	err := r.db.WithContext(ctx).
		Select(model.IdentityColumns).
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "find identities")
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
