package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/target/passkey-lab/internal/domain/model"
)

// CredentialRepo provides document-store operations for registered
// authenticator credentials. The record key is the credential id minted by
// the authenticator.
type CredentialRepo struct {
	store *DocumentStore
}

// NewCredentialRepo creates a CredentialRepo over the given document store.
func NewCredentialRepo(store *DocumentStore) *CredentialRepo {
	return &CredentialRepo{store: store}
}

// Save inserts or replaces a credential record.
func (r *CredentialRepo) Save(ctx context.Context, cred *model.PublicKeyCredential) error {
	if cred == nil || cred.ID == "" {
		return errors.New("credential with id is required")
	}
	if cred.UserHandle == "" {
		return errors.New("credential owner handle is required")
	}
	if err := r.store.Set(ctx, CollectionCredentials, cred.ID, cred); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// GetByID retrieves a credential by the id the authenticator returned.
func (r *CredentialRepo) GetByID(ctx context.Context, id string) (*model.PublicKeyCredential, error) {
	doc, err := r.store.Find(ctx, CollectionCredentials, id)
	if err != nil {
		if errors.Is(err, ErrDocNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}
	return decodeCredential(doc)
}

// ListByHandle returns all credentials owned by a passkey user handle.
func (r *CredentialRepo) ListByHandle(ctx context.Context, handle string) ([]*model.PublicKeyCredential, error) {
	if handle == "" {
		return nil, nil
	}
	docs, err := r.store.FindWhere(ctx, CollectionCredentials, "user_handle", handle)
	if err != nil {
		return nil, err
	}
	creds := make([]*model.PublicKeyCredential, 0, len(docs))
	for _, doc := range docs {
		cred, decodeErr := decodeCredential(doc)
		if decodeErr != nil {
			return nil, decodeErr
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// Update persists changes to an existing credential (rename, usage stamps).
func (r *CredentialRepo) Update(ctx context.Context, cred *model.PublicKeyCredential) error {
	if cred == nil || cred.ID == "" {
		return ErrCredentialNotFound
	}
	if _, err := r.store.Find(ctx, CollectionCredentials, cred.ID); err != nil {
		if errors.Is(err, ErrDocNotFound) {
			return ErrCredentialNotFound
		}
		return err
	}
	return r.Save(ctx, cred)
}

// Delete removes one credential by id.
func (r *CredentialRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, CollectionCredentials, id); err != nil {
		if errors.Is(err, ErrDocNotFound) {
			return ErrCredentialNotFound
		}
		return err
	}
	return nil
}

// DeleteByHandle removes all credentials owned by a handle (account deletion
// cascade). Absence of credentials is not an error.
func (r *CredentialRepo) DeleteByHandle(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	if _, err := r.store.DeleteWhere(ctx, CollectionCredentials, "user_handle", handle); err != nil {
		return fmt.Errorf("delete credentials by handle: %w", err)
	}
	return nil
}

func decodeCredential(doc json.RawMessage) (*model.PublicKeyCredential, error) {
	var cred model.PublicKeyCredential
	if err := json.Unmarshal(doc, &cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &cred, nil
}
