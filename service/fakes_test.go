package service

import (
	"context"
	"maps"
	"sync"
	"time"

	"customer-auth/entity"
	"customer-auth/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memState is the content of the fake database
type memState struct {
	whitelist      map[string]bool
	otps           map[string]entity.OTP
	customers      map[int64]entity.Customer
	sessions       map[string]entity.Session
	nextCustomerID int64
	nextSessionID  int64
}

func (s *memState) clone() *memState {
	return &memState{
		whitelist:      maps.Clone(s.whitelist),
		otps:           maps.Clone(s.otps),
		customers:      maps.Clone(s.customers),
		sessions:       maps.Clone(s.sessions),
		nextCustomerID: s.nextCustomerID,
		nextSessionID:  s.nextSessionID,
	}
}

type memFailures struct {
	customerErr error
	sessionErr  error
	otpErr      error
}

// memStore is a serializable in-memory store: transactions run one at a time
// on a copy that replaces the state on commit.
type memStore struct {
	mu    sync.Mutex
	state *memState
	fail  memFailures

	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		whitelist: map[string]bool{},
		otps:      map[string]entity.OTP{},
		customers: map[int64]entity.Customer{},
		sessions:  map[string]entity.Session{},
	}}
}

func (m *memStore) Repositories() *repository.Repositories {
	return reposFor(&memDB{mu: &m.mu, state: func() *memState { return m.state }, fail: &m.fail})
}

func (m *memStore) WithinTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(reposFor(&memDB{state: func() *memState { return work }, fail: &m.fail})); err != nil {
		m.rollbacks++
		return err
	}
	m.state = work
	m.commits++
	return nil
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memStore) whitelistPhone(phone string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.whitelist[phone] = true
}

func (m *memStore) putOTP(otp entity.OTP) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.otps[otp.PhoneNumber] = otp
}

func (m *memStore) putCustomer(c entity.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID > m.state.nextCustomerID {
		m.state.nextCustomerID = c.ID
	}
	m.state.customers[c.ID] = c
}

func (m *memStore) putSession(s entity.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.nextSessionID++
	s.ID = m.state.nextSessionID
	m.state.sessions[s.TokenHash] = s
}

type memDB struct {
	mu    *sync.Mutex // nil inside a transaction, which already holds the lock
	state func() *memState
	fail  *memFailures
}

func (db *memDB) do(f func(st *memState) error) error {
	if db.mu != nil {
		db.mu.Lock()
		defer db.mu.Unlock()
	}
	return f(db.state())
}

func reposFor(db *memDB) *repository.Repositories {
	return &repository.Repositories{
		Whitelist: memWhitelist{db},
		OTP:       memOTPs{db},
		Customer:  memCustomers{db},
		Session:   memSessions{db},
	}
}

type memWhitelist struct{ db *memDB }

func (r memWhitelist) Exists(ctx context.Context, phoneNumber string) (bool, error) {
	var ok bool
	err := r.db.do(func(st *memState) error {
		ok = st.whitelist[phoneNumber]
		return nil
	})
	return ok, err
}

type memOTPs struct{ db *memDB }

func (r memOTPs) Upsert(ctx context.Context, otp *entity.OTP) error {
	return r.db.do(func(st *memState) error {
		stored := *otp
		stored.IsUsed = false
		stored.UsedAt = nil
		st.otps[otp.PhoneNumber] = stored
		return nil
	})
}

func (r memOTPs) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.OTP, error) {
	var found *entity.OTP
	err := r.db.do(func(st *memState) error {
		if r.db.fail.otpErr != nil {
			return r.db.fail.otpErr
		}
		otp, ok := st.otps[phoneNumber]
		if !ok {
			return repository.ErrNotFound
		}
		found = &otp
		return nil
	})
	return found, err
}

func (r memOTPs) MarkAsUsed(ctx context.Context, phoneNumber, codeHash string, usedAt time.Time) (bool, error) {
	var consumed bool
	err := r.db.do(func(st *memState) error {
		otp, ok := st.otps[phoneNumber]
		if !ok || otp.IsUsed || otp.CodeHash != codeHash {
			return nil
		}
		otp.IsUsed = true
		otp.UsedAt = &usedAt
		st.otps[phoneNumber] = otp
		consumed = true
		return nil
	})
	return consumed, err
}

func (r memOTPs) Delete(ctx context.Context, phoneNumber, codeHash string) (bool, error) {
	var deleted bool
	err := r.db.do(func(st *memState) error {
		if otp, ok := st.otps[phoneNumber]; ok && otp.CodeHash == codeHash {
			delete(st.otps, phoneNumber)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

func (r memOTPs) DeleteUsedOrExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	err := r.db.do(func(st *memState) error {
		for phone, otp := range st.otps {
			if otp.IsUsed || otp.ExpiresAt.Before(now) {
				delete(st.otps, phone)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

type memCustomers struct{ db *memDB }

func (r memCustomers) GetByID(ctx context.Context, id int64) (*entity.Customer, error) {
	var found *entity.Customer
	err := r.db.do(func(st *memState) error {
		c, ok := st.customers[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = &c
		return nil
	})
	return found, err
}

func (r memCustomers) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.Customer, error) {
	var found *entity.Customer
	err := r.db.do(func(st *memState) error {
		for _, c := range st.customers {
			if c.PhoneNumber == phoneNumber {
				found = &c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return found, err
}

func (r memCustomers) GetOrCreate(ctx context.Context, customer *entity.Customer) (*entity.Customer, bool, error) {
	var result *entity.Customer
	var created bool
	err := r.db.do(func(st *memState) error {
		if r.db.fail.customerErr != nil {
			return r.db.fail.customerErr
		}
		for _, c := range st.customers {
			if c.PhoneNumber == customer.PhoneNumber {
				result = &c
				return nil
			}
		}
		st.nextCustomerID++
		c := *customer
		c.ID = st.nextCustomerID
		st.customers[c.ID] = c
		result, created = &c, true
		return nil
	})
	return result, created, err
}

type memSessions struct{ db *memDB }

func (r memSessions) Create(ctx context.Context, session *entity.Session) error {
	return r.db.do(func(st *memState) error {
		if r.db.fail.sessionErr != nil {
			return r.db.fail.sessionErr
		}
		if _, exists := st.sessions[session.TokenHash]; exists {
			return nil
		}
		st.nextSessionID++
		s := *session
		s.ID = st.nextSessionID
		st.sessions[s.TokenHash] = s
		return nil
	})
}

func (r memSessions) GetByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error) {
	var found *entity.Session
	err := r.db.do(func(st *memState) error {
		s, ok := st.sessions[tokenHash]
		if !ok {
			return repository.ErrNotFound
		}
		found = &s
		return nil
	})
	return found, err
}

func (r memSessions) DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	var deleted int64
	err := r.db.do(func(st *memState) error {
		if _, ok := st.sessions[tokenHash]; ok {
			delete(st.sessions, tokenHash)
			deleted = 1
		}
		return nil
	})
	return deleted, err
}

func (r memSessions) DeleteByCustomerID(ctx context.Context, customerID int64) (int64, error) {
	var deleted int64
	err := r.db.do(func(st *memState) error {
		for h, s := range st.sessions {
			if s.CustomerID == customerID {
				delete(st.sessions, h)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

// recordingSender captures delivered codes
type recordingSender struct {
	sent chan [2]string
	err  error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(chan [2]string, 16)}
}

func (s *recordingSender) Send(ctx context.Context, phoneNumber, code string) error {
	s.sent <- [2]string{phoneNumber, code}
	return s.err
}

func (s *recordingSender) next() (phone, code string, ok bool) {
	select {
	case msg := <-s.sent:
		return msg[0], msg[1], true
	case <-time.After(2 * time.Second):
		return "", "", false
	}
}

type memRateLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (r *memRateLimiter) Hit(ctx context.Context, key string, window time.Duration) (*repository.RateLimitInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.counts == nil {
		r.counts = map[string]int64{}
	}
	r.counts[key]++
	return &repository.RateLimitInfo{Key: key, RequestCount: r.counts[key], ResetIn: window}, nil
}

// failingJWT wraps a real JWTService and injects signing or decoding failures
type failingJWT struct {
	JWTService
	generateErr  error
	expiresAtErr error
}

func (f *failingJWT) GenerateToken(customer *entity.Customer) (string, error) {
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.JWTService.GenerateToken(customer)
}

func (f *failingJWT) ExpiresAt(tokenString string) (time.Time, error) {
	if f.expiresAtErr != nil {
		return time.Time{}, f.expiresAtErr
	}
	return f.JWTService.ExpiresAt(tokenString)
}

// interleavingStore runs afterRead inside the transaction right after the
// verifier has read the OTP row. The writes it performs through repos stand
// in for a concurrent request that committed between two statements.
type interleavingStore struct {
	*memStore
	afterRead func(ctx context.Context, repos *repository.Repositories)
}

func (s *interleavingStore) WithinTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	return s.memStore.WithinTx(ctx, func(repos *repository.Repositories) error {
		hooked := *repos
		hooked.OTP = &hookedOTPs{OTPRepository: repos.OTP, afterGet: func(ctx context.Context) {
			if s.afterRead != nil {
				s.afterRead(ctx, repos)
			}
		}}
		return fn(&hooked)
	})
}

type hookedOTPs struct {
	repository.OTPRepository
	afterGet func(ctx context.Context)
}

func (r *hookedOTPs) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.OTP, error) {
	otp, err := r.OTPRepository.GetByPhoneNumber(ctx, phoneNumber)
	if err == nil {
		r.afterGet(ctx)
	}
	return otp, err
}
