// Package mocks provides mock implementations for testing the data-access ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockUserRepository(ctrl)
//	mockRepo.EXPECT().GetByUsername(gomock.Any(), "alice").Return(user, nil)
package mocks

// Generate mock for UserRepository interface from internal/ports package.
// This creates MockUserRepository with methods for all UserRepository interface methods:
// Create, GetByID, GetByUsername, GetByHandle, GetByEmail, Update, Delete, ListExpired
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_repository_mock.go github.com/target/passkey-lab/internal/ports UserRepository

// Generate mock for CredentialRepository interface from internal/ports package.
// This creates MockCredentialRepository with methods for all CredentialRepository interface methods:
// Save, GetByID, ListByHandle, Update, Delete, DeleteByHandle
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_repository_mock.go github.com/target/passkey-lab/internal/ports CredentialRepository

// Generate mock for FederationRepository interface from internal/ports package.
// This creates MockFederationRepository with methods for all FederationRepository interface methods:
// Create, ListByUser, ListByIssuer, DeleteByUser
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=federation_repository_mock.go github.com/target/passkey-lab/internal/ports FederationRepository
