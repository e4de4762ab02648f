package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/passkey-lab/config"
	"github.com/target/passkey-lab/internal/ports"
)

// RetentionServiceOptions groups dependencies for RetentionService.
type RetentionServiceOptions struct {
	Users       ports.UserRepository
	Credentials ports.CredentialRepository
	Mappings    ports.FederationRepository
	Config      config.RetentionConfig
	Logger      *slog.Logger // Optional: structured logger
}

// RetentionService evicts accounts past their expiry timestamp, cascading to
// their credentials and federation mappings. It runs as a background loop for
// the lifetime of the process.
type RetentionService struct {
	users       ports.UserRepository
	credentials ports.CredentialRepository
	mappings    ports.FederationRepository
	config      config.RetentionConfig
	logger      *slog.Logger
}

// NewRetentionService constructs a RetentionService.
func NewRetentionService(opts RetentionServiceOptions) (*RetentionService, error) {
	if opts.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if opts.Credentials == nil {
		return nil, errors.New("credential repository is required")
	}
	if opts.Mappings == nil {
		return nil, errors.New("federation repository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "retention_service")
	}

	return &RetentionService{
		users:       opts.Users,
		credentials: opts.Credentials,
		mappings:    opts.Mappings,
		config:      opts.Config,
		logger:      logger,
	}, nil
}

// Run starts the sweep loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *RetentionService) Run(ctx context.Context) error {
	if !s.config.Enabled {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "retention sweep disabled")
		}
		<-ctx.Done()
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting retention sweep", "interval", s.config.Interval)
	}

	// Jitter so multiple instances starting together don't sweep in lockstep.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.Sweep(ctx); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "initial retention sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "retention sweep stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				if s.logger != nil {
					s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
				}
				// Keep running despite errors.
			}
		}
	}
}

// Sweep evicts up to one batch of expired accounts. Exposed for direct
// invocation in tests and admin paths.
func (s *RetentionService) Sweep(ctx context.Context) error {
	expired, err := s.users.ListExpired(ctx, s.config.Batch)
	if err != nil {
		return fmt.Errorf("list expired accounts: %w", err)
	}

	var swept int
	for _, user := range expired {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if user.PasskeyUserHandle != "" {
			if err := s.credentials.DeleteByHandle(ctx, user.PasskeyUserHandle); err != nil {
				return fmt.Errorf("delete credentials for %s: %w", user.ID, err)
			}
		}
		if err := s.mappings.DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("delete mappings for %s: %w", user.ID, err)
		}
		if err := s.users.Delete(ctx, user.ID); err != nil {
			return fmt.Errorf("delete account %s: %w", user.ID, err)
		}
		swept++
	}

	if swept > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "retention sweep complete", "evicted", swept)
	}
	return nil
}

// waitWithJitter delays up to 10% of the interval.
func (s *RetentionService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return
	}
	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}
