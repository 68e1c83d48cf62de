package credlock

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

type mockUserStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	history map[string][]string
	nextID  int

	failWith error // when set, every method returns it
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		byID:    make(map[string]*User),
		history: make(map[string][]string),
	}
}

func (s *mockUserStore) CreateUser(_ context.Context, input CreateUserInput) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	for _, u := range s.byID {
		if (input.Email != "" && u.Email == input.Email) || (input.Phone != "" && u.Phone == input.Phone) {
			return nil, ErrDuplicateIdentifier
		}
	}

	s.nextID++
	user := &User{
		ID:           "user-" + strconv.Itoa(s.nextID),
		Email:        input.Email,
		Phone:        input.Phone,
		Role:         input.Role,
		PasswordHash: input.PasswordHash,
		CreatedAt:    time.Now(),
	}
	s.byID[user.ID] = user
	copied := *user
	return &copied, nil
}

func (s *mockUserStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNoSuchUser
	}
	copied := *u
	return &copied, nil
}

func (s *mockUserStore) FindByEmailOrPhone(_ context.Context, email, phone string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	for _, u := range s.byID {
		if (email != "" && u.Email == email) || (phone != "" && u.Phone == phone) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNoSuchUser
}

func (s *mockUserStore) MarkVerified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	u, ok := s.byID[id]
	if !ok {
		return ErrNoSuchUser
	}
	u.IsVerified = true
	return nil
}

func (s *mockUserStore) UpdateContact(_ context.Context, id, email, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	u, ok := s.byID[id]
	if !ok {
		return ErrNoSuchUser
	}
	u.Email = email
	u.Phone = phone
	u.IsVerified = false
	return nil
}

func (s *mockUserStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	u, ok := s.byID[id]
	if !ok {
		return ErrNoSuchUser
	}
	u.PasswordHash = hash
	return nil
}

func (s *mockUserStore) AppendPasswordHistory(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	if _, ok := s.byID[id]; !ok {
		return ErrNoSuchUser
	}
	s.history[id] = append(s.history[id], hash)
	return nil
}

func (s *mockUserStore) RecentPasswordHashes(_ context.Context, id string, n int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	all := s.history[id]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]string, len(all))
	for i, hash := range all {
		out[len(all)-1-i] = hash
	}
	return out, nil
}

func (s *mockUserStore) RecordLoginFailure(_ context.Context, id string, threshold int, lockFor time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return 0, time.Time{}, s.failWith
	}

	u, ok := s.byID[id]
	if !ok {
		return 0, time.Time{}, ErrNoSuchUser
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= threshold {
		u.LockUntil = time.Now().Add(lockFor)
	}
	return u.FailedLoginAttempts, u.LockUntil, nil
}

func (s *mockUserStore) ResetLoginFailures(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	u, ok := s.byID[id]
	if !ok {
		return ErrNoSuchUser
	}
	u.FailedLoginAttempts = 0
	u.LockUntil = time.Time{}
	return nil
}

// mutate runs fn on the live stored row, bypassing the engine.
func (s *mockUserStore) mutate(t *testing.T, id string, fn func(*User)) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		t.Fatalf("no stored user %q", id)
	}
	fn(u)
}

func (s *mockUserStore) stored(t *testing.T, id string) User {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		t.Fatalf("no stored user %q", id)
	}
	return *u
}

type mockProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*Profile
}

func newMockProfileStore() *mockProfileStore {
	return &mockProfileStore{profiles: make(map[string]*Profile)}
}

func (s *mockProfileStore) Get(_ context.Context, userID string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *mockProfileStore) Upsert(_ context.Context, profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *profile
	s.profiles[copied.UserID] = &copied
	return nil
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type recordingMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failWith error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingSMS struct {
	mu       sync.Mutex
	sent     []sentMail
	failWith error
}

func (m *recordingSMS) Send(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, sentMail{to: to, body: body})
	return nil
}

func (m *recordingSMS) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no sms sent")
	}
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	engine   *Engine
	users    *mockUserStore
	profiles *mockProfileStore
	secrets  *MemorySecretStore
	mailer   *recordingMailer
	sms      *recordingSMS
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Token.Issuer = "credlock-test"
	cfg.Password.Cost = 4 // keep hashing cheap in tests
	cfg.Audit.Enabled = false
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		users:    newMockUserStore(),
		profiles: newMockProfileStore(),
		secrets:  NewMemorySecretStore(cfg.OTP.TTL),
		mailer:   &recordingMailer{},
		sms:      &recordingSMS{},
	}

	engine, err := New().
		WithConfig(cfg).
		WithUserStore(env.users).
		WithProfileStore(env.profiles).
		WithSecretStore(env.secrets).
		WithMailer(env.mailer).
		WithSMSSender(env.sms).
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	t.Cleanup(engine.Close)

	env.engine = engine
	return env
}

const testPassword = "Sup3r-Secret!"

// registerVerified creates an account through the engine and marks it
// verified directly in the store.
func (env *testEnv) registerVerified(t *testing.T, email, phone string) *PublicUser {
	t.Helper()

	user, err := env.engine.Register(context.Background(), RegisterRequest{
		Email:    email,
		Phone:    phone,
		Password: testPassword,
		Role:     "member",
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := env.users.MarkVerified(context.Background(), user.ID); err != nil {
		t.Fatalf("MarkVerified error: %v", err)
	}
	return user
}

// liveOTP reads the current passcode for identifier straight out of the
// memory secret store.
func (env *testEnv) liveOTP(t *testing.T, identifier string) string {
	t.Helper()
	env.secrets.mu.Lock()
	defer env.secrets.mu.Unlock()
	record, ok := env.secrets.otps[identifier]
	if !ok {
		t.Fatalf("no live OTP for %q", identifier)
	}
	return record.code
}

// verificationTokenFromMail extracts the token from the last verification
// email (the demo link format keeps the token as the final query value).
func (env *testEnv) verificationTokenFromMail(t *testing.T) string {
	t.Helper()
	body := env.mailer.last(t).body
	idx := strings.LastIndex(body, " ")
	if idx < 0 {
		t.Fatalf("unexpected mail body %q", body)
	}
	return body[idx+1:]
}
