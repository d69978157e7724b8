package session

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
)

func testUser() *User {
	return &User{
		ID:        "17",
		Name:      "Jane Nakato",
		Email:     "jane@example.com",
		Role:      "admin",
		Category:  "wakanet",
		CreatedAt: "2024-03-01T10:00:00Z",
	}
}

func readyStore(t *testing.T, p Persister, opts ...Option) *Store {
	t.Helper()
	s := NewStore(p, opts...)
	require.NoError(t, s.Rehydrate(context.Background()))
	return s
}

func TestSignInSetsUserAndToken(t *testing.T) {
	s := readyStore(t, NewMemoryPersister())

	require.NoError(t, s.SignIn(testUser(), "tok-1"))

	assert.True(t, s.Authenticated())
	assert.Equal(t, "tok-1", s.Token())
	assert.Equal(t, "jane@example.com", s.User().Email)
}

func TestSignInRejectsIncompleteSession(t *testing.T) {
	s := readyStore(t, NewMemoryPersister())

	err := s.SignIn(nil, "tok")
	require.Error(t, err)
	code, _ := perrors.CodeOf(err)
	assert.Equal(t, perrors.ErrCodeSessionInvalid, code)

	assert.Error(t, s.SignIn(testUser(), ""))
	assert.False(t, s.Authenticated())
	assert.Nil(t, s.User())
	assert.Empty(t, s.Token())
}

func TestUserIsCopied(t *testing.T) {
	s := readyStore(t, NewMemoryPersister())
	u := testUser()
	require.NoError(t, s.SignIn(u, "tok"))

	u.Name = "mutated"
	s.User().Name = "also mutated"

	assert.Equal(t, "Jane Nakato", s.User().Name)
}

// A user is present if and only if a token is, after any sequence of calls.
func TestUserTokenInvariant(t *testing.T) {
	s := readyStore(t, NewMemoryPersister())
	rng := rand.New(rand.NewSource(7))

	check := func() {
		t.Helper()
		user, token := s.User(), s.Token()
		assert.Equal(t, user != nil, token != "", "user=%v token=%q", user, token)
	}

	for i := 0; i < 500; i++ {
		switch rng.Intn(4) {
		case 0:
			_ = s.SignIn(testUser(), "tok")
		case 1:
			_ = s.SignIn(nil, "tok")
		case 2:
			_ = s.SignIn(testUser(), "")
		case 3:
			require.NoError(t, s.SignOut())
		}
		check()
	}
}

func TestUserTokenInvariantConcurrent(t *testing.T) {
	s := readyStore(t, NewMemoryPersister())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	var violations atomic.Int32

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			st := s.Snapshot()
			if (st.User != nil) != (st.Token != "") {
				violations.Add(1)
			}
		}
	}()

	var writers sync.WaitGroup
	for i := 0; i < 8; i++ {
		writers.Add(1)
		go func(i int) {
			defer writers.Done()
			for j := 0; j < 100; j++ {
				if (i+j)%2 == 0 {
					_ = s.SignIn(testUser(), "tok")
				} else {
					_ = s.SignOut()
				}
			}
		}(i)
	}
	writers.Wait()
	close(stop)
	wg.Wait()

	assert.Zero(t, violations.Load())
}

func TestSignOutIdempotent(t *testing.T) {
	s := readyStore(t, NewMemoryPersister())
	require.NoError(t, s.SignIn(testUser(), "tok"))

	require.NoError(t, s.SignOut())
	require.NoError(t, s.SignOut())

	assert.False(t, s.Authenticated())
	assert.Nil(t, s.User())
	assert.Empty(t, s.Token())
}

func TestConcurrentTeardownNeverErrors(t *testing.T) {
	dir := t.TempDir()
	var teardowns atomic.Int32
	s := readyStore(t, NewFilePersister(dir), WithTeardownObserver(func(Reason) { teardowns.Add(1) }))
	require.NoError(t, s.SignIn(testUser(), "tok"))

	var redirects atomic.Int32
	nav := NavigatorFunc(func(Reason) { redirects.Add(1) })

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- Expire(s, nav, ReasonIdle)
		}()
		go func() {
			defer wg.Done()
			errs <- s.SignOut()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.False(t, s.Authenticated())
	assert.Equal(t, int32(10), redirects.Load())
	assert.Equal(t, int32(1), teardowns.Load(), "only the call that ended the session is observed")

	_, err := os.Stat(filepath.Join(dir, SessionFile))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestExpireRedirectsWithReason(t *testing.T) {
	s := readyStore(t, NewMemoryPersister())
	require.NoError(t, s.SignIn(testUser(), "tok"))

	var got []Reason
	require.NoError(t, Expire(s, NavigatorFunc(func(r Reason) { got = append(got, r) }), ReasonUnauthorized))

	assert.False(t, s.Authenticated())
	assert.Equal(t, []Reason{ReasonUnauthorized}, got)
	assert.NoError(t, Expire(s, nil, ReasonUnauthorized))
}

func TestPersistenceRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		persister func(t *testing.T) Persister
	}{
		{"memory", func(*testing.T) Persister { return NewMemoryPersister() }},
		{"file", func(t *testing.T) Persister { return NewFilePersister(t.TempDir()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.persister(t)
			before := readyStore(t, p)
			require.NoError(t, before.SignIn(testUser(), "tok-round-trip"))

			// a fresh store over the same storage is a restarted process
			after := readyStore(t, p)

			assert.Equal(t, before.Token(), after.Token())
			assert.Equal(t, before.User(), after.User())
		})
	}
}

func TestFilePersisterPermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	p := NewFilePersister(dir)
	require.NoError(t, p.Save(State{User: testUser(), Token: "tok"}))

	info, err := os.Stat(p.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	require.NoError(t, p.Clear())
	require.NoError(t, p.Clear())

	st, err := p.Load()
	require.NoError(t, err)
	assert.False(t, st.Authenticated())
}

func TestRehydrateCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SessionFile), []byte("{not json"), 0o600))

	s := NewStore(NewFilePersister(dir))
	err := s.Rehydrate(context.Background())
	require.Error(t, err)

	select {
	case <-s.Ready():
	default:
		t.Fatal("store must be ready after a failed rehydration")
	}
	assert.False(t, s.Authenticated())
}

func TestRehydrateDiscardsIncompleteState(t *testing.T) {
	p := NewMemoryPersister()
	require.NoError(t, p.Save(State{User: testUser()}))

	s := readyStore(t, p)
	assert.False(t, s.Authenticated())
	assert.Nil(t, p.Raw())
}

func TestRehydrateDropsIdleSession(t *testing.T) {
	p := NewMemoryPersister()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	first := readyStore(t, p, WithClock(func() time.Time { return start }))
	require.NoError(t, first.SignIn(testUser(), "tok"))

	var reasons []Reason
	later := NewStore(p,
		WithIdleTimeout(15*time.Minute),
		WithClock(func() time.Time { return start.Add(16 * time.Minute) }),
		WithTeardownObserver(func(r Reason) { reasons = append(reasons, r) }),
	)
	err := later.Rehydrate(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, perrors.ErrSessionExpired))
	assert.False(t, later.Authenticated())
	assert.Equal(t, []Reason{ReasonIdle}, reasons)
	assert.Nil(t, p.Raw())
}

func TestRehydrateKeepsActiveSession(t *testing.T) {
	p := NewMemoryPersister()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	first := readyStore(t, p, WithClock(func() time.Time { return start }))
	require.NoError(t, first.SignIn(testUser(), "tok"))

	later := readyStore(t, p, WithClock(func() time.Time { return start.Add(5 * time.Minute) }))
	assert.True(t, later.Authenticated())
}

func TestTouchExtendsIdleWindow(t *testing.T) {
	p := NewMemoryPersister()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	s := readyStore(t, p, WithClock(clock))
	require.NoError(t, s.SignIn(testUser(), "tok"))

	now = now.Add(10 * time.Minute)
	s.Touch()
	now = now.Add(10 * time.Minute)

	restarted := readyStore(t, p, WithClock(clock))
	assert.True(t, restarted.Authenticated())
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "17",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestRehydrateDropsExpiredToken(t *testing.T) {
	now := time.Now()
	p := NewMemoryPersister()
	require.NoError(t, p.Save(State{User: testUser(), Token: signedToken(t, now.Add(-time.Minute)), LastActive: now}))

	s := NewStore(p)
	err := s.Rehydrate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, perrors.ErrSessionExpired))
	assert.False(t, s.Authenticated())
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now()

	exp, ok := TokenExpiry(signedToken(t, now.Add(time.Hour)))
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(time.Hour), exp, time.Second)
	assert.False(t, TokenExpired(signedToken(t, now.Add(time.Hour)), now))
	assert.True(t, TokenExpired(signedToken(t, now.Add(-time.Hour)), now))

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)
	assert.False(t, TokenExpired("opaque-token", now))
}

func TestTokenForRequestWaitsForRehydration(t *testing.T) {
	p := NewMemoryPersister()
	require.NoError(t, p.Save(State{User: testUser(), Token: "restored", LastActive: time.Now()}))
	s := NewStore(p)

	type result struct {
		token string
		ok    bool
	}
	done := make(chan result, 1)
	go func() {
		tok, ok := s.TokenForRequest(context.Background())
		done <- result{tok, ok}
	}()

	select {
	case <-done:
		t.Fatal("request must not proceed before rehydration")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, s.Rehydrate(context.Background()))

	select {
	case r := <-done:
		assert.True(t, r.ok)
		assert.Equal(t, "restored", r.token)
	case <-time.After(time.Second):
		t.Fatal("request did not resume after rehydration")
	}
}

func TestTokenForRequestTimesOutUnauthenticated(t *testing.T) {
	p := NewMemoryPersister()
	require.NoError(t, p.Save(State{User: testUser(), Token: "restored"}))
	s := NewStore(p)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	tok, ok := s.TokenForRequest(ctx)
	assert.False(t, ok)
	assert.Empty(t, tok)
}

func TestIdleTimerFires(t *testing.T) {
	fired := make(chan struct{}, 4)
	timer := NewIdleTimer(20*time.Millisecond, func() { fired <- struct{}{} })
	timer.Start()
	defer timer.Stop()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("idle timer did not fire")
	}

	select {
	case <-fired:
		t.Fatal("idle timer fired twice for one idle period")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestIdleTimerTouchPostpones(t *testing.T) {
	var fired atomic.Int32
	timer := NewIdleTimer(80*time.Millisecond, func() { fired.Add(1) })
	timer.Start()
	defer timer.Stop()

	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		timer.Touch()
	}
	assert.Zero(t, fired.Load())
}

func TestIdleTimerStop(t *testing.T) {
	var fired atomic.Int32
	timer := NewIdleTimer(10*time.Millisecond, func() { fired.Add(1) })
	timer.Start()
	timer.Stop()
	timer.Touch()

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestIdleTimerDrivesExpire(t *testing.T) {
	s := readyStore(t, NewMemoryPersister())
	require.NoError(t, s.SignIn(testUser(), "tok"))

	redirected := make(chan Reason, 1)
	timer := NewIdleTimer(10*time.Millisecond, func() {
		_ = Expire(s, NavigatorFunc(func(r Reason) { redirected <- r }), ReasonIdle)
	})
	timer.Start()
	defer timer.Stop()

	select {
	case r := <-redirected:
		assert.Equal(t, ReasonIdle, r)
	case <-time.After(time.Second):
		t.Fatal("idle expiry did not redirect")
	}
	assert.False(t, s.Authenticated())
}
