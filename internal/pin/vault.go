package pin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength         = 16
	defaultMaxAttempts = 5
)

// Params tunes the argon2id key derivation.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

// DefaultParams follows the argon2id recommendation for interactive use.
var DefaultParams = Params{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32}

// FailureRecorder counts wrong PIN entries and lockouts.
type FailureRecorder interface {
	RecordPinFailure(locked bool)
}

// Config configures a Vault.
type Config struct {
	Params      Params
	MaxAttempts int
	Metrics     FailureRecorder
	Logger      *slog.Logger
}

// Vault stores salted PIN hashes and enforces the lockout state machine.
type Vault struct {
	store       Store
	params      Params
	maxAttempts int
	metrics     FailureRecorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewVault constructs a Vault. Zero config values fall back to defaults.
func NewVault(store Store, cfg Config) *Vault {
	if cfg.Params.KeyLen == 0 {
		cfg.Params = DefaultParams
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Vault{
		store:       store,
		params:      cfg.Params,
		maxAttempts: cfg.MaxAttempts,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetPin creates or replaces the PIN of the pair, clearing any lockout.
func (v *Vault) SetPin(ctx context.Context, accountID, tagID int64, raw string) error {
	return v.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		return v.SetPinTx(ctx, tx, accountID, tagID, raw)
	})
}

// SetPinTx is SetPin inside a caller owned transaction.
func (v *Vault) SetPinTx(ctx context.Context, tx TxStore, accountID, tagID int64, raw string) error {
	if err := ValidatePin(raw); err != nil {
		return err
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	return tx.SaveRecord(ctx, Record{
		AccountID: accountID,
		TagID:     tagID,
		Hash:      v.hash(raw, salt),
		Salt:      salt,
		UpdatedAt: v.now(),
	})
}

// Verify checks raw against the stored PIN. Failed attempts are committed
// before the error is returned, so they survive the caller's rollback.
func (v *Vault) Verify(ctx context.Context, accountID, tagID int64, raw string) error {
	var outcome error
	err := v.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		rec, err := tx.LockRecord(ctx, accountID, tagID)
		if err != nil {
			return err
		}
		if rec.Locked {
			outcome = ErrPinLocked
			return nil
		}

		now := v.now()
		rec.LastAttemptAt = &now
		rec.UpdatedAt = now
		if subtle.ConstantTimeCompare(v.hash(raw, rec.Salt), rec.Hash) == 1 {
			rec.Attempts = 0
			return tx.SaveRecord(ctx, rec)
		}

		rec.Attempts++
		outcome = ErrPinMismatch
		if rec.Attempts >= v.maxAttempts {
			rec.Locked = true
			outcome = ErrPinLocked
		}
		return tx.SaveRecord(ctx, rec)
	})
	if err != nil {
		return err
	}
	if outcome != nil {
		locked := errors.Is(outcome, ErrPinLocked)
		if v.metrics != nil {
			v.metrics.RecordPinFailure(locked)
		}
		if locked {
			v.logger.Warn("pin locked", slog.Int64("account_id", accountID), slog.Int64("tag_id", tagID))
		}
	}
	return outcome
}

// Status reports the record state without touching it.
func (v *Vault) Status(ctx context.Context, accountID, tagID int64) (Status, error) {
	rec, err := v.store.Get(ctx, accountID, tagID)
	if errors.Is(err, ErrNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}
	updated := rec.UpdatedAt
	return Status{
		HasPin:        true,
		Attempts:      rec.Attempts,
		Locked:        rec.Locked,
		LastAttemptAt: rec.LastAttemptAt,
		UpdatedAt:     &updated,
	}, nil
}

func (v *Vault) hash(raw string, salt []byte) []byte {
	return argon2.IDKey([]byte(raw), salt, v.params.Time, v.params.Memory, v.params.Threads, v.params.KeyLen)
}
