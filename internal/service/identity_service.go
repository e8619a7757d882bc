package service

import (
	"context"

	"vidtube/internal/model"
	"vidtube/internal/repository"
	"vidtube/internal/util"

	"github.com/pkg/errors"
)

// IdentityService resolves the calling user from an access token.
type IdentityService interface {
	ResolveRequester(ctx context.Context, token string) (*model.User, error)
}

type identityService struct {
	users     repository.UserRepository
	jwtSecret string
}

func NewIdentityService(users repository.UserRepository, jwtSecret string) IdentityService {
	return &identityService{
		users:     users,
		jwtSecret: jwtSecret,
	}
}

func (s *identityService) ResolveRequester(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, util.NewAuthenticationError("unauthorized request")
	}
	claims, err := util.ValidateToken(token, s.jwtSecret)
	if err != nil {
		return nil, util.NewAuthenticationError("invalid access token")
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.NewAuthenticationError("invalid access token")
		}
		return nil, util.NewInternalError(err, "internal server error while verifying the user")
	}
	return user, nil
}
