package application

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/pks-portal/internal/domain/entity"
	repo "github.com/oksasatya/pks-portal/internal/domain/repository"
	"github.com/oksasatya/pks-portal/pkg/apperror"
	"github.com/oksasatya/pks-portal/pkg/helpers"
)

var (
	ErrTokenRequired  = apperror.Unauthorized("authentication token is required")
	ErrSessionExpired = apperror.Unauthorized("session expired, please log in again").WithMeta("expired", true)
	ErrInvalidToken   = apperror.Unauthorized("invalid token")
	ErrInvalidUser    = apperror.Unauthorized("invalid user")
	ErrAdminOnly      = apperror.Forbidden("admin access only")
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        entity.Role `json:"role"`
	IsVerified  bool        `json:"isVerified"`
	LastVisited *time.Time  `json:"lastVisited"`
}

func (i *Identity) IsAdmin() bool { return i != nil && i.Role == entity.RoleAdmin }

// Gate turns session tokens into identities. It never writes to the store.
type Gate struct {
	Users repo.UserRepository
	JWT   *helpers.JWTManager
}

func NewGate(users repo.UserRepository, jwt *helpers.JWTManager) *Gate {
	return &Gate{Users: users, JWT: jwt}
}

// Authenticate verifies token and loads its subject.
func (g *Gate) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}
	claims, err := g.JWT.VerifySessionToken(token)
	if err != nil {
		if errors.Is(err, helpers.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		if errors.Is(err, helpers.ErrSigningKeyMissing) {
			return nil, apperror.Internal("authentication is not configured", err)
		}
		return nil, ErrInvalidToken
	}
	u, err := g.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidUser
		}
		return nil, apperror.Internal("failed to load user", err)
	}
	return &Identity{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		IsVerified:  u.IsVerified,
		LastVisited: u.LastVisited,
	}, nil
}

// AuthorizeAdmin checks an already authenticated identity.
func (g *Gate) AuthorizeAdmin(id *Identity) error {
	if id == nil {
		return ErrTokenRequired
	}
	if !id.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}
