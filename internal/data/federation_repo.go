package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/target/passkey-lab/internal/domain/model"
)

// FederationRepo provides document-store operations for identity-provider
// mappings.
type FederationRepo struct {
	store *DocumentStore
}

// NewFederationRepo creates a FederationRepo over the given document store.
func NewFederationRepo(store *DocumentStore) *FederationRepo {
	return &FederationRepo{store: store}
}

// Create inserts a new mapping. Mappings are write-once.
func (r *FederationRepo) Create(ctx context.Context, mapping *model.FederationMapping) error {
	if mapping == nil || mapping.ID == "" {
		return errors.New("mapping with id is required")
	}
	if mapping.UserID == "" || mapping.Issuer == "" {
		return errors.New("mapping user id and issuer are required")
	}
	if err := r.store.Set(ctx, CollectionMappings, mapping.ID, mapping); err != nil {
		return fmt.Errorf("create federation mapping: %w", err)
	}
	return nil
}

// ListByUser returns all mappings owned by a user.
func (r *FederationRepo) ListByUser(ctx context.Context, userID string) ([]*model.FederationMapping, error) {
	if userID == "" {
		return nil, nil
	}
	docs, err := r.store.FindWhere(ctx, CollectionMappings, "user_id", userID)
	if err != nil {
		return nil, err
	}
	return decodeMappings(docs)
}

// ListByIssuer returns the mappings for one (issuer, user) pair. More than
// one element signals the known duplicate-mapping condition.
func (r *FederationRepo) ListByIssuer(ctx context.Context, issuer, userID string) ([]*model.FederationMapping, error) {
	docs, err := r.store.FindWhere(ctx, CollectionMappings, "issuer", issuer)
	if err != nil {
		return nil, err
	}
	mappings, err := decodeMappings(docs)
	if err != nil {
		return nil, err
	}
	out := mappings[:0]
	for _, m := range mappings {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

// DeleteByUser removes all mappings owned by a user (account deletion
// cascade). Absence of mappings is not an error.
func (r *FederationRepo) DeleteByUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if _, err := r.store.DeleteWhere(ctx, CollectionMappings, "user_id", userID); err != nil {
		return fmt.Errorf("delete federation mappings by user: %w", err)
	}
	return nil
}

func decodeMappings(docs []json.RawMessage) ([]*model.FederationMapping, error) {
	mappings := make([]*model.FederationMapping, 0, len(docs))
	for _, doc := range docs {
		var m model.FederationMapping
		if err := json.Unmarshal(doc, &m); err != nil {
			return nil, fmt.Errorf("decode federation mapping: %w", err)
		}
		mappings = append(mappings, &m)
	}
	return mappings, nil
}
