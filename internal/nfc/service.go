package nfc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/pin"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

const (
	defaultSessionTTL = 10 * time.Minute
	sessionTokenBytes = 32
)

// AuditRecorder persists administrative actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// SessionRecorder counts payment session outcomes.
type SessionRecorder interface {
	RecordSession(outcome string)
}

// Config configures the Service.
type Config struct {
	SessionTTL    time.Duration
	PublicBaseURL string
	// Clock overrides time.Now, in UTC.
	Clock func() time.Time
}

// Service implements the NFC tag registry and the payment session manager.
type Service struct {
	store   Store
	vault   *pin.Vault
	links   *LinkSigner
	hooks   ledger.Hooks
	audit   AuditRecorder
	metrics SessionRecorder
	logger  *slog.Logger
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

// NewService constructs a Service. audit and metrics may be nil.
func NewService(store Store, vault *pin.Vault, links *LinkSigner, hooks ledger.Hooks, audit AuditRecorder, metrics SessionRecorder, logger *slog.Logger, cfg Config) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:   store,
		vault:   vault,
		links:   links,
		hooks:   hooks,
		audit:   audit,
		metrics: metrics,
		logger:  logger,
		ttl:     cfg.SessionTTL,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:     cfg.Clock,
	}
}

// RegisterTag binds a tag to an active account and sets its PIN in the
// same transaction.
func (s *Service) RegisterTag(ctx context.Context, actorID int64, in RegisterInput) (Registration, error) {
	uid := NormalizeTagUID(in.TagUID)
	if uid == "" || len(uid) > maxTagUIDLength {
		return Registration{}, ErrInvalidTagUID
	}
	if err := pin.ValidatePin(in.Pin); err != nil {
		return Registration{}, err
	}

	var tag Tag
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		owner, err := tx.Owner(ctx, in.AccountID)
		if err != nil {
			return err
		}
		if !owner.IsActive {
			return ErrOwnerInactive
		}
		tag, err = tx.InsertTag(ctx, Tag{AccountID: owner.ID, TagUID: uid, IsActive: true, CreatedAt: s.now()})
		if err != nil {
			return err
		}
		tag.OwnerName = owner.FullName
		tag.OwnerAccountNumber = owner.AccountNumber
		tag.OwnerActive = owner.IsActive
		return s.vault.SetPinTx(ctx, tx.Pins(), owner.ID, tag.ID, in.Pin)
	})
	if err != nil {
		return Registration{}, err
	}

	link, err := s.PayLink(tag.ID)
	if err != nil {
		return Registration{}, err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   shared.AuditTagRegistered,
		Entity:   "nfc_tag",
		EntityID: strconv.FormatInt(tag.ID, 10),
		Meta:     map[string]any{"tag_uid": tag.TagUID, "account_id": tag.AccountID},
	})
	return Registration{Tag: tag, PayLink: link}, nil
}

// PayLink returns the URL encoded onto the physical tag.
func (s *Service) PayLink(tagID int64) (string, error) {
	token, err := s.links.Sign(tagID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/nfc/pay/%d/%s", s.baseURL, tagID, token), nil
}

// DeactivateTag revokes a tag. Pending sessions opened through it can
// still be confirmed until they expire.
func (s *Service) DeactivateTag(ctx context.Context, actorID, tagID int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		return tx.SetTagActive(ctx, tagID, false)
	})
	if err != nil {
		return err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   shared.AuditTagDeactivated,
		Entity:   "nfc_tag",
		EntityID: strconv.FormatInt(tagID, 10),
	})
	return nil
}

// ListTags returns every registered tag, newest first.
func (s *Service) ListTags(ctx context.Context) ([]Tag, error) {
	return s.store.ListTags(ctx)
}

// TagDetails returns the tag with its PIN state and payment totals.
func (s *Service) TagDetails(ctx context.Context, tagID int64) (TagDetails, error) {
	tag, err := s.store.TagByID(ctx, tagID)
	if err != nil {
		return TagDetails{}, err
	}
	status, err := s.vault.Status(ctx, tag.AccountID, tag.ID)
	if err != nil {
		return TagDetails{}, err
	}
	stats, err := s.store.TagStats(ctx, tag.ID)
	if err != nil {
		return TagDetails{}, err
	}
	link, err := s.PayLink(tag.ID)
	if err != nil {
		return TagDetails{}, err
	}
	return TagDetails{Tag: tag, Pin: status, Stats: stats, PayLink: link}, nil
}

// ResetPin replaces the PIN of a tag and clears its lockout.
func (s *Service) ResetPin(ctx context.Context, actorID, tagID int64, raw string) error {
	tag, err := s.store.TagByID(ctx, tagID)
	if err != nil {
		return err
	}
	if err := s.vault.SetPin(ctx, tag.AccountID, tag.ID, raw); err != nil {
		return err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   shared.AuditPinReset,
		Entity:   "nfc_tag",
		EntityID: strconv.FormatInt(tag.ID, 10),
	})
	return nil
}

// Open starts a payment session after a business scans a buyer's tag.
func (s *Service) Open(ctx context.Context, seller rbac.Principal, tagID int64, linkToken string) (Session, error) {
	if err := s.links.Verify(linkToken, tagID); err != nil {
		return Session{}, err
	}
	if seller.RoleName != shared.RoleBusiness {
		return Session{}, ErrNotBusiness
	}
	tag, err := s.store.TagByID(ctx, tagID)
	if err != nil {
		return Session{}, err
	}
	if !tag.IsActive {
		return Session{}, ErrTagInactive
	}
	if !tag.OwnerActive {
		return Session{}, ErrOwnerInactive
	}
	if tag.AccountID == seller.AccountID {
		return Session{}, ErrSelfPayment
	}
	token, err := newSessionToken()
	if err != nil {
		return Session{}, err
	}

	now := s.now()
	var sess Session
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		sess, err = tx.InsertSession(ctx, Session{
			Token:           token,
			TagID:           tag.ID,
			BuyerAccountID:  tag.AccountID,
			SellerAccountID: seller.AccountID,
			Status:          StatusPending,
			CreatedAt:       now,
			ExpiresAt:       now.Add(s.ttl),
		})
		return err
	})
	if err != nil {
		return Session{}, err
	}
	sess.BuyerName = tag.OwnerName
	s.hooks.Invalidate(ctx)
	s.recordSession(StatusPending)
	return sess, nil
}

// SetAmount fixes the amount of a pending session. Only its seller may.
func (s *Service) SetAmount(ctx context.Context, seller rbac.Principal, token string, amount decimal.Decimal) (Session, error) {
	if err := ledger.ValidateAmount(amount); err != nil {
		return Session{}, err
	}
	var sess Session
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		sess, err = tx.LockSession(ctx, token)
		if err != nil {
			return err
		}
		if sess.SellerAccountID != seller.AccountID {
			return ErrNotSeller
		}
		if err := s.checkOpen(sess); err != nil {
			return err
		}
		sess.Amount = &amount
		return tx.UpdateSession(ctx, sess)
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Confirm verifies the buyer's PIN and moves the session amount from the
// buyer to the seller. Wrong PINs are counted even though no money moves.
func (s *Service) Confirm(ctx context.Context, token, rawPin string) (Payment, error) {
	sess, err := s.store.SessionByToken(ctx, token)
	if err != nil {
		return Payment{}, err
	}
	if err := s.checkOpen(sess); err != nil {
		return Payment{}, err
	}
	if sess.Amount == nil {
		return Payment{}, ErrAmountNotSet
	}

	if err := s.vault.Verify(ctx, sess.BuyerAccountID, sess.TagID, rawPin); err != nil {
		if errors.Is(err, pin.ErrPinMismatch) || errors.Is(err, pin.ErrPinLocked) {
			s.recordSession("wrong_pin")
		}
		return Payment{}, err
	}

	var posting ledger.Posting
	var completed time.Time
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		locked, err := tx.LockSession(ctx, token)
		if err != nil {
			return err
		}
		if err := s.checkOpen(locked); err != nil {
			return err
		}
		if locked.Amount == nil {
			return ErrAmountNotSet
		}
		// The buyer approved sess.Amount with their PIN.
		if !locked.Amount.Equal(*sess.Amount) {
			return ErrAmountChanged
		}
		buyer, err := tx.Owner(ctx, locked.BuyerAccountID)
		if err != nil {
			return err
		}
		seller, err := tx.Owner(ctx, locked.SellerAccountID)
		if err != nil {
			return err
		}
		posting, err = ledger.Post(ctx, tx.Ledger(), ledger.Movement{
			From:        buyer.AccountNumber,
			To:          seller.AccountNumber,
			Amount:      *locked.Amount,
			Type:        ledger.TypeNFCPayment,
			Description: "NFC payment to " + seller.FullName,
			InitiatedBy: buyer.ID,
		})
		if err != nil {
			return err
		}
		completed = s.now()
		locked.Status = StatusPaid
		locked.CompletedAt = &completed
		return tx.UpdateSession(ctx, locked)
	})
	if err != nil {
		return Payment{}, err
	}

	s.hooks.Committed(ctx, posting)
	s.recordSession(StatusPaid)
	return Payment{
		NewBalance:  posting.FromBalance,
		Amount:      posting.Transaction.Amount,
		Reference:   posting.Transaction.Reference.String(),
		CompletedAt: completed,
	}, nil
}

// Status reports the state of a session for polling terminals. Unknown
// tokens report StatusNotFound.
func (s *Service) Status(ctx context.Context, token string) (SessionStatus, error) {
	sess, err := s.store.SessionByToken(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return SessionStatus{Status: StatusNotFound}, nil
	}
	if err != nil {
		return SessionStatus{}, err
	}
	status := sess.Status
	if sess.Expired(s.now()) {
		status = StatusExpired
	}
	return SessionStatus{Status: status, Amount: sess.Amount}, nil
}

// Sweep marks stale pending sessions expired.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireSessions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.hooks.Invalidate(ctx)
	}
	for i := int64(0); i < n; i++ {
		s.recordSession(StatusExpired)
	}
	return n, nil
}

func (s *Service) checkOpen(sess Session) error {
	if sess.Status == StatusPaid {
		return ErrSessionPaid
	}
	if sess.Expired(s.now()) {
		return ErrSessionExpired
	}
	return nil
}

func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Error("nfc audit", slog.String("action", log.Action), slog.Any("error", err))
	}
}

func (s *Service) recordSession(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordSession(outcome)
	}
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
