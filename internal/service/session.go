package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/passkey-lab/internal/domain/auth"
	"github.com/target/passkey-lab/internal/domain/model"
	"github.com/target/passkey-lab/internal/ports"
)

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Sessions ports.SessionStore
	Ledger   ports.ChallengeLedger

	// ShortSession gates step-up re-authentication; LongSession is the
	// absolute session lifetime.
	ShortSession time.Duration
	LongSession  time.Duration
}

// SessionService owns every mutation of the per-visitor session record.
// Ceremony orchestrators hold a reference to this service and never touch
// session fields directly.
type SessionService struct {
	sessions ports.SessionStore
	ledger   ports.ChallengeLedger
	short    time.Duration
	long     time.Duration
}

// NewSessionService constructs a SessionService.
func NewSessionService(opts SessionServiceOptions) (*SessionService, error) {
	if opts.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("challenge ledger is required")
	}
	if opts.ShortSession <= 0 {
		opts.ShortSession = 3 * time.Minute
	}
	if opts.LongSession <= opts.ShortSession {
		opts.LongSession = 365 * 24 * time.Hour
	}
	return &SessionService{
		sessions: opts.Sessions,
		ledger:   opts.Ledger,
		short:    opts.ShortSession,
		long:     opts.LongSession,
	}, nil
}

// ShortSession returns the step-up threshold duration.
func (s *SessionService) ShortSession() time.Duration { return s.short }

// LongSession returns the absolute session lifetime, which doubles as the
// session cookie max age.
func (s *SessionService) LongSession() time.Duration { return s.long }

// Start creates and persists a fresh anonymous session.
func (s *SessionService) Start(ctx context.Context) (*domainauth.Session, error) {
	now := time.Now()
	sess := &domainauth.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.long),
	}
	if err := s.sessions.Save(ctx, *sess); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}

// Load retrieves the session for a token. A missing or expired record
// returns (nil, nil): the caller starts a fresh session.
func (s *SessionService) Load(ctx context.Context, token string) (*domainauth.Session, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &sess, nil
}

// Status derives the sign-in status for the session at this instant.
func (s *SessionService) Status(sess *domainauth.Session) domainauth.SignInStatus {
	return domainauth.DeriveStatus(sess, time.Now(), s.short)
}

// BeginSigningUp records the candidate username for a new account.
func (s *SessionService) BeginSigningUp(ctx context.Context, sess *domainauth.Session, username string) error {
	return s.beginWithIdentifier(ctx, sess, username)
}

// BeginSigningIn records the candidate username for an existing-account
// sign-in. No pending passkey handle is set.
func (s *SessionService) BeginSigningIn(ctx context.Context, sess *domainauth.Session, username string) error {
	return s.beginWithIdentifier(ctx, sess, username)
}

func (s *SessionService) beginWithIdentifier(ctx context.Context, sess *domainauth.Session, username string) error {
	username = strings.TrimSpace(username)
	if !model.IsValidUsername(username) {
		return ErrInvalidIdentifier
	}
	sess.Username = username
	sess.PendingHandle = ""
	return s.save(ctx, sess)
}

// SetPendingHandle stashes the passkey user handle minted for a sign-up
// ceremony before the account row exists.
func (s *SessionService) SetPendingHandle(ctx context.Context, sess *domainauth.Session, handle string) error {
	if handle == "" {
		return errors.New("pending handle cannot be empty")
	}
	sess.PendingHandle = handle
	return s.save(ctx, sess)
}

// ClearPendingHandle drops any pending passkey handle.
func (s *SessionService) ClearPendingHandle(ctx context.Context, sess *domainauth.Session) error {
	if sess.PendingHandle == "" {
		return nil
	}
	sess.PendingHandle = ""
	return s.save(ctx, sess)
}

// CommitSignedIn is the only path that advances a session to signed-in.
// It clears all flow-in-progress state, stores the account snapshot and
// stamps the authentication time.
func (s *SessionService) CommitSignedIn(ctx context.Context, sess *domainauth.Session, user *model.User) error {
	if user == nil {
		return errors.New("user is required to commit sign-in")
	}

	// One-shot values bound to the finished flow must not survive it.
	if err := s.ledger.Clear(ctx, sess.ID, ports.KindChallenge); err != nil {
		return fmt.Errorf("clear challenge: %w", err)
	}

	snapshot := *user
	snapshot.Password = "" // never persist the password into the session record
	sess.User = &snapshot
	sess.Username = snapshot.Username
	sess.PendingHandle = ""
	sess.LastSignedInAt = time.Now()
	return s.save(ctx, sess)
}

// SignOut destroys the session entirely. The next request gets a new token.
func (s *SessionService) SignOut(ctx context.Context, sess *domainauth.Session) error {
	if sess == nil || sess.ID == "" {
		return nil
	}
	if err := s.ledger.Clear(ctx, sess.ID, ports.KindChallenge); err != nil {
		return fmt.Errorf("clear challenge: %w", err)
	}
	if err := s.ledger.Clear(ctx, sess.ID, ports.KindNonce); err != nil {
		return fmt.Errorf("clear nonce: %w", err)
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// RefreshUser replaces the signed-in account snapshot after a profile
// mutation, without restamping the authentication time.
func (s *SessionService) RefreshUser(ctx context.Context, sess *domainauth.Session, user *model.User) error {
	if sess.User == nil {
		return ErrInvalidState
	}
	snapshot := *user
	snapshot.Password = ""
	sess.User = &snapshot
	return s.save(ctx, sess)
}

// RememberEntrance records the page at which a flow started so terminal
// redirects can return there instead of a generic default.
func (s *SessionService) RememberEntrance(ctx context.Context, sess *domainauth.Session, path string) error {
	if path == "" || !strings.HasPrefix(path, "/") {
		path = "/"
	}
	if sess.Entrance == path {
		return nil
	}
	sess.Entrance = path
	return s.save(ctx, sess)
}

// RecallEntrance returns the recorded entrance page, defaulting to "/".
func (s *SessionService) RecallEntrance(sess *domainauth.Session) string {
	if sess == nil || sess.Entrance == "" {
		return "/"
	}
	return sess.Entrance
}

// IssueChallenge mints and binds a fresh one-time ceremony challenge.
func (s *SessionService) IssueChallenge(ctx context.Context, sess *domainauth.Session) (string, error) {
	return s.ledger.Issue(ctx, sess.ID, ports.KindChallenge)
}

// BindChallenge binds a verifier-minted challenge to the session.
func (s *SessionService) BindChallenge(ctx context.Context, sess *domainauth.Session, value string) error {
	return s.ledger.Bind(ctx, sess.ID, ports.KindChallenge, value)
}

// ConsumeChallenge removes and returns the bound challenge, or
// ErrMissingChallenge. The removal is atomic with the read.
func (s *SessionService) ConsumeChallenge(ctx context.Context, sess *domainauth.Session) (string, error) {
	value, err := s.ledger.Consume(ctx, sess.ID, ports.KindChallenge)
	if err != nil {
		if errors.Is(err, ports.ErrNoChallenge) {
			return "", ErrMissingChallenge
		}
		return "", fmt.Errorf("consume challenge: %w", err)
	}
	return value, nil
}

// IssueNonce mints and binds a fresh federation nonce.
func (s *SessionService) IssueNonce(ctx context.Context, sess *domainauth.Session) (string, error) {
	return s.ledger.Issue(ctx, sess.ID, ports.KindNonce)
}

// ConsumeNonce removes and returns the bound nonce, or ErrMissingNonce.
func (s *SessionService) ConsumeNonce(ctx context.Context, sess *domainauth.Session) (string, error) {
	value, err := s.ledger.Consume(ctx, sess.ID, ports.KindNonce)
	if err != nil {
		if errors.Is(err, ports.ErrNoChallenge) {
			return "", ErrMissingNonce
		}
		return "", fmt.Errorf("consume nonce: %w", err)
	}
	return value, nil
}

func (s *SessionService) save(ctx context.Context, sess *domainauth.Session) error {
	if err := s.sessions.Save(ctx, *sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
