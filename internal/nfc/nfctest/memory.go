// Package nfctest provides an in-memory NFC store for tests.
package nfctest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger/ledgertest"
	"github.com/odyssey-erp/odyssey-bank/internal/nfc"
	"github.com/odyssey-erp/odyssey-bank/internal/pin"
	"github.com/odyssey-erp/odyssey-bank/internal/pin/pintest"
)

// Store is an in-memory nfc.Store whose transactions also cover the
// wrapped ledger and PIN stores.
type Store struct {
	Accounts *ledgertest.Store
	PINs     *pintest.Store

	mu       sync.Mutex
	tags     map[int64]nfc.Tag
	sessions map[string]nfc.Session
	nextTag  int64
	nextSess int64
}

// New wraps the given ledger and PIN stores.
func New(accounts *ledgertest.Store, pins *pintest.Store) *Store {
	return &Store{
		Accounts: accounts,
		PINs:     pins,
		tags:     make(map[int64]nfc.Tag),
		sessions: make(map[string]nfc.Session),
	}
}

// Session returns a copy of the stored session.
func (s *Store) Session(token string) (nfc.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	return sess, ok
}

func (s *Store) checkpoint() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags := make(map[int64]nfc.Tag, len(s.tags))
	for id, t := range s.tags {
		tags[id] = t
	}
	sessions := make(map[string]nfc.Session, len(s.sessions))
	for token, sess := range s.sessions {
		sessions[token] = sess
	}
	nextTag, nextSess := s.nextTag, s.nextSess
	restoreLedger := s.Accounts.Checkpoint()
	restorePins := s.PINs.Checkpoint()
	return func() {
		restoreLedger()
		restorePins()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tags, s.sessions = tags, sessions
		s.nextTag, s.nextSess = nextTag, nextSess
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, nfc.TxStore) error) error {
	return s.Accounts.Serialize(func() error {
		restore := s.checkpoint()
		if err := fn(ctx, s); err != nil {
			restore()
			return err
		}
		return nil
	})
}

func (s *Store) withOwner(t nfc.Tag) nfc.Tag {
	if acc, ok := s.Accounts.Account(t.AccountID); ok {
		t.OwnerName = acc.FullName
		t.OwnerAccountNumber = acc.AccountNumber
		t.OwnerActive = acc.IsActive
	}
	return t
}

func (s *Store) TagByID(ctx context.Context, id int64) (nfc.Tag, error) {
	s.mu.Lock()
	t, ok := s.tags[id]
	s.mu.Unlock()
	if !ok {
		return nfc.Tag{}, nfc.ErrTagNotFound
	}
	return s.withOwner(t), nil
}

func (s *Store) ListTags(ctx context.Context) ([]nfc.Tag, error) {
	s.mu.Lock()
	out := make([]nfc.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, t)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	for i := range out {
		out[i] = s.withOwner(out[i])
	}
	return out, nil
}

func (s *Store) TagStats(ctx context.Context, tagID int64) (nfc.TagStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := nfc.TagStats{Total: decimal.Zero}
	for _, sess := range s.sessions {
		if sess.TagID == tagID && sess.Status == nfc.StatusPaid && sess.Amount != nil {
			stats.Payments++
			stats.Total = stats.Total.Add(*sess.Amount)
		}
	}
	return stats, nil
}

func (s *Store) SessionByToken(ctx context.Context, token string) (nfc.Session, error) {
	sess, ok := s.Session(token)
	if !ok {
		return nfc.Session{}, nfc.ErrSessionNotFound
	}
	return sess, nil
}

func (s *Store) ExpireSessions(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, sess := range s.sessions {
		if sess.Status == nfc.StatusPending && !now.Before(sess.ExpiresAt) {
			sess.Status = nfc.StatusExpired
			s.sessions[token] = sess
			n++
		}
	}
	return n, nil
}

func (s *Store) Owner(ctx context.Context, accountID int64) (nfc.Owner, error) {
	acc, ok := s.Accounts.Account(accountID)
	if !ok {
		return nfc.Owner{}, nfc.ErrOwnerNotFound
	}
	return nfc.Owner{ID: acc.ID, AccountNumber: acc.AccountNumber, FullName: acc.FullName, IsActive: acc.IsActive}, nil
}

func (s *Store) InsertTag(ctx context.Context, tag nfc.Tag) (nfc.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags {
		if t.TagUID == tag.TagUID {
			return nfc.Tag{}, nfc.ErrTagExists
		}
	}
	s.nextTag++
	tag.ID = s.nextTag
	s.tags[tag.ID] = tag
	return tag, nil
}

func (s *Store) SetTagActive(ctx context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tags[id]
	if !ok {
		return nfc.ErrTagNotFound
	}
	t.IsActive = active
	s.tags[id] = t
	return nil
}

func (s *Store) InsertSession(ctx context.Context, sess nfc.Session) (nfc.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSess++
	sess.ID = s.nextSess
	s.sessions[sess.Token] = sess
	return sess, nil
}

func (s *Store) LockSession(ctx context.Context, token string) (nfc.Session, error) {
	return s.SessionByToken(ctx, token)
}

func (s *Store) UpdateSession(ctx context.Context, sess nfc.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.Token]; !ok {
		return nfc.ErrSessionNotFound
	}
	s.sessions[sess.Token] = sess
	return nil
}

func (s *Store) Ledger() ledger.TxStore { return s.Accounts }

func (s *Store) Pins() pin.TxStore { return s.PINs }

var (
	_ nfc.Store   = (*Store)(nil)
	_ nfc.TxStore = (*Store)(nil)
)
