package ports

import (
	"context"

	"github.com/target/passkey-lab/internal/domain/model"
)

// UserRepository is the data-access port for local accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByHandle(ctx context.Context, handle string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error

	// ListExpired returns accounts whose expiry timestamp is in the past,
	// for the retention sweeper.
	ListExpired(ctx context.Context, limit int) ([]*model.User, error)
}

// CredentialRepository is the data-access port for registered authenticators.
type CredentialRepository interface {
	Save(ctx context.Context, cred *model.PublicKeyCredential) error
	GetByID(ctx context.Context, id string) (*model.PublicKeyCredential, error)
	ListByHandle(ctx context.Context, handle string) ([]*model.PublicKeyCredential, error)
	Update(ctx context.Context, cred *model.PublicKeyCredential) error
	Delete(ctx context.Context, id string) error
	DeleteByHandle(ctx context.Context, handle string) error
}

// FederationRepository is the data-access port for identity-provider mappings.
type FederationRepository interface {
	Create(ctx context.Context, mapping *model.FederationMapping) error
	ListByUser(ctx context.Context, userID string) ([]*model.FederationMapping, error)
	ListByIssuer(ctx context.Context, issuer, userID string) ([]*model.FederationMapping, error)
	DeleteByUser(ctx context.Context, userID string) error
}
