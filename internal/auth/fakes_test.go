package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// testClock is a manually advanced clock shared by the engine and the
// refresh store under test.
type testClock struct{ t time.Time }

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// memUsers is an in-memory UserRepository that hands out copies, like a
// real store would.
type memUsers struct {
	mu     sync.Mutex
	byID   map[string]model.User
	seq    int
	err    error // returned by every call when set
	saves  int
	create func(*model.User) error // optional hook run before insert
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]model.User{}} }

func (m *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.Email == strings.ToLower(email) {
			cp := u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	if m.create != nil {
		if err := m.create(u); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	m.seq++
	u.ID = fmt.Sprintf("user-%d", m.seq)
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) Save(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.byID[u.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range m.byID {
		if id != u.ID && existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	m.saves++
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) get(id string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// memTokens is an in-memory TokenRepository.
type memTokens struct {
	mu     sync.Mutex
	byHash map[string]model.RefreshToken
	err    error
}

func newMemTokens() *memTokens { return &memTokens{byHash: map[string]model.RefreshToken{}} }

func (m *memTokens) Create(_ context.Context, t *model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	t.ID = fmt.Sprintf("rt-%d", len(m.byHash)+1)
	m.byHash[t.TokenHash] = *t
	return nil
}

func (m *memTokens) FindByHash(_ context.Context, h string) (*model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.byHash[h]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, h string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	t, ok := m.byHash[h]
	if !ok || t.Revoked {
		return nil
	}
	t.Revoked = true
	t.RevokedAt = &at
	m.byHash[h] = t
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for h, t := range m.byHash {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			t.RevokedAt = &at
			m.byHash[h] = t
		}
	}
	return nil
}

func (m *memTokens) lookup(raw string) (model.RefreshToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHash[utils.HashRefreshRaw(raw)]
	return t, ok
}

// fakeHasher is deterministic and counts calls so tests can assert the
// hasher was never consulted.
type fakeHasher struct {
	hashErr  error
	verifies int
}

func (h *fakeHasher) Hash(plain string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + plain, nil
}

func (h *fakeHasher) Verify(plain, hash string) bool {
	h.verifies++
	return hash == "hashed:"+plain
}

// fakeCodec issues "access:<id>:<n>" tokens that expire after ttl on the
// shared clock.
type fakeCodec struct {
	clock    *testClock
	ttl      time.Duration
	issued   map[string]time.Time
	n        int
	issueErr error
}

func newFakeCodec(clock *testClock) *fakeCodec {
	return &fakeCodec{clock: clock, ttl: time.Hour, issued: map[string]time.Time{}}
}

func (c *fakeCodec) Issue(userID string) (utils.AccessToken, error) {
	if c.issueErr != nil {
		return utils.AccessToken{}, c.issueErr
	}
	c.n++
	tok := fmt.Sprintf("access:%s:%d", userID, c.n)
	exp := c.clock.Now().Add(c.ttl)
	c.issued[tok] = exp
	return utils.AccessToken{Token: tok, Exp: exp}, nil
}

func (c *fakeCodec) Verify(token string) (string, error) {
	exp, ok := c.issued[token]
	if !ok || !c.clock.Now().Before(exp) {
		return "", utils.ErrInvalidToken
	}
	parts := strings.Split(token, ":")
	return parts[1], nil
}

type publishedEvent struct {
	Exchange   string
	RoutingKey string
	Payload    any
}

// recordingNotifier captures events synchronously.
type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(exchange, routingKey string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{exchange, routingKey, payload})
}

func (n *recordingNotifier) keys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.RoutingKey)
	}
	return out
}

func (n *recordingNotifier) last() publishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

var errStore = errors.New("store unavailable")

type fixture struct {
	clock    *testClock
	users    *memUsers
	tokens   *memTokens
	hasher   *fakeHasher
	codec    *fakeCodec
	notifier *recordingNotifier
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		clock:    newTestClock(),
		users:    newMemUsers(),
		tokens:   newMemTokens(),
		hasher:   &fakeHasher{},
		notifier: &recordingNotifier{},
	}
	f.codec = newFakeCodec(f.clock)
	refresh := NewRefreshStore(f.tokens, DefaultRefreshTTL, f.clock.Now)
	f.svc = NewService(f.users, refresh, f.hasher, f.codec, f.notifier, WithClock(f.clock.Now))
	return f
}
