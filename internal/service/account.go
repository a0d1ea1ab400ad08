package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"worldcup-betting/internal/metrics"
	"worldcup-betting/internal/model"
	"worldcup-betting/internal/repository"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	User    *model.User
	Session *model.Session
	Created bool
}

// AccountService handles login, sessions and the welcome bonus.
type AccountService struct {
	store      Store
	verifier   IdentityVerifier
	rules      Rules
	sessionTTL time.Duration
	now        func() time.Time
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(store Store, verifier IdentityVerifier, rules Rules, sessionTTL time.Duration) *AccountService {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &AccountService{
		store:      store,
		verifier:   verifier,
		rules:      rules,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Login verifies the credential, then in one transaction creates the user
// if new (crediting the welcome bonus exactly once), refreshes the display
// attributes, purges expired sessions and opens a new session.
func (s *AccountService) Login(ctx context.Context, credential string) (*LoginResult, error) {
	identity, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return s.LoginIdentity(ctx, identity)
}

// LoginIdentity is Login for an already verified identity.
func (s *AccountService) LoginIdentity(ctx context.Context, identity *Identity) (*LoginResult, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return nil, err
	}

	result := &LoginResult{}
	var bonus *model.LedgerEntry

	err = s.store.WithTx(ctx, func(tx pgx.Tx) error {
		repos := repository.NewSet(tx)
		now := s.now()

		user, created, err := repos.Users.GetOrCreate(ctx, uuid.NewString(), identity.Subject, identity.Name, identity.Email)
		if err != nil {
			return err
		}
		if created && s.rules.WelcomeBonus > 0 {
			if bonus, err = repos.Ledger.Append(ctx, user.ID, nil, s.rules.WelcomeBonus, model.EntryWelcomeBonus); err != nil {
				return err
			}
		}
		if !created && (user.Name != identity.Name || user.Email != identity.Email) {
			if err := repos.Users.UpdateProfile(ctx, user.ID, identity.Name, identity.Email); err != nil {
				return err
			}
			user.Name, user.Email = identity.Name, identity.Email
		}

		if _, err := repos.Sessions.DeleteExpired(ctx, now); err != nil {
			return err
		}
		session, err := repos.Sessions.Create(ctx, sessionID, user.ID, now.Add(s.sessionTTL))
		if err != nil {
			return err
		}

		result.User, result.Session, result.Created = user, session, created
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if bonus != nil {
		metrics.RecordEntry(string(bonus.Kind), bonus.Amount)
	}
	log.Info().Str("user_id", result.User.ID).Bool("created", result.Created).Msg("User logged in")
	return result, nil
}

// CurrentUser resolves an unexpired session to its user.
func (s *AccountService) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, ErrUnauthenticated
	}

	repos := repository.NewSet(s.store)
	session, err := repos.Sessions.GetValid(ctx, sessionID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, classify(err)
	}

	user, err := repos.Users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, classify(err)
	}
	return user, nil
}

// Logout ends a session. Unknown sessions are ignored.
func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := repository.NewSessionRepository(s.store).Delete(ctx, sessionID); err != nil {
		return classify(err)
	}
	return nil
}

// SessionTTL returns how long new sessions stay valid.
func (s *AccountService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// newSessionID returns 32 hex characters from the system CSPRNG.
func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
