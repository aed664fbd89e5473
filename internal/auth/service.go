package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	hashCost int
	compare  func(hash, password []byte) error

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, hashCost: bcrypt.DefaultCost, compare: bcrypt.CompareHashAndPassword}
}

// WithHashCost overrides the bcrypt cost.
func (s *Service) WithHashCost(cost int) *Service {
	s.hashCost = cost
	return s
}

// Authenticate validates passport/password credentials. The blocked check
// runs after the password check so it never confirms a passport exists.
func (s *Service) Authenticate(ctx context.Context, passport, password string) (Credentials, error) {
	creds, err := s.repo.FindByPassport(ctx, passport)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Unknown passports pay for a bcrypt compare too, so response
			// time does not reveal which passports exist.
			_ = s.compare(s.dummy(), []byte(password))
			return Credentials{}, shared.ErrInvalidCredentials
		}
		return Credentials{}, err
	}
	if err := s.compare([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return Credentials{}, shared.ErrInvalidCredentials
	}
	if !creds.IsActive {
		return Credentials{}, ErrAccountBlocked
	}
	return creds, nil
}

// dummy returns a hash at the configured cost that no password matches.
func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("odyssey-bank:no-such-account"), s.hashCost)
		if err != nil {
			hash, _ = bcrypt.GenerateFromPassword([]byte("odyssey-bank:no-such-account"), bcrypt.DefaultCost)
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// ChangePassword replaces the password of accountID after checking the
// current one.
func (s *Service) ChangePassword(ctx context.Context, accountID int64, in PasswordChange) error {
	creds, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(in.Current)); err != nil {
		return ErrWrongPassword
	}
	if in.New != in.Confirm {
		return ErrPasswordMismatch
	}
	if len(in.New) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.New), s.hashCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, accountID, string(hash))
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, accountID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, accountID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
