package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmbranch/branchdesk/pkg/domain"
)

var alice = domain.User{ID: 7, Name: "Alice", Email: "alice@example.com", Role: "branch", ClientID: 3}

func newStore(st Storage) *Store {
	return NewStore(st, zerolog.Nop())
}

func TestInitializeEmpty(t *testing.T) {
	s := newStore(NewMemoryStorage())
	assert.Equal(t, StateUninitialized, s.State())
	assert.Equal(t, StateUnauthenticated, s.Initialize())
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Credential())
}

func TestInitializeRestoresPair(t *testing.T) {
	st := NewMemoryStorage()
	require.NoError(t, st.Set(KeyToken, "T"))
	require.NoError(t, st.Set(KeyUser, `{"id":7,"name":"Alice","role":"branch"}`))

	s := newStore(st)
	assert.Equal(t, StateAuthenticated, s.Initialize())
	sess, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "T", sess.Credential)
	assert.Equal(t, int64(7), sess.Identity.ID)
}

func TestInitializePurgesPartialPair(t *testing.T) {
	tests := []struct {
		name  string
		token string
		user  string
	}{
		{"token only", "T", ""},
		{"user only", "", `{"id":7}`},
		{"malformed user", "T", `{not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewMemoryStorage()
			if tt.token != "" {
				require.NoError(t, st.Set(KeyToken, tt.token))
			}
			if tt.user != "" {
				require.NoError(t, st.Set(KeyUser, tt.user))
			}

			s := newStore(st)
			assert.Equal(t, StateUnauthenticated, s.Initialize())
			assert.False(t, s.IsAuthenticated())
			assert.Equal(t, 0, st.Len(), "partial pair must be purged")
		})
	}
}

func TestInitializeRunsOnce(t *testing.T) {
	st := NewMemoryStorage()
	s := newStore(st)
	require.Equal(t, StateUnauthenticated, s.Initialize())

	require.NoError(t, st.Set(KeyToken, "T"))
	require.NoError(t, st.Set(KeyUser, `{"id":1}`))
	assert.Equal(t, StateUnauthenticated, s.Initialize())
}

func TestInitializeReadFailure(t *testing.T) {
	st := NewMemoryStorage()
	require.NoError(t, st.Set(KeyToken, "T"))
	require.NoError(t, st.Set(KeyUser, `{"id":1}`))
	st.FailGet(KeyUser, errors.New("disk gone"))

	s := newStore(st)
	assert.Equal(t, StateUnauthenticated, s.Initialize())
}

func TestLoginBeforeInitialize(t *testing.T) {
	s := newStore(NewMemoryStorage())
	err := s.Login("T", alice)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, StateUninitialized, s.State())
}

func TestLoginRejectsEmptyCredential(t *testing.T) {
	s := newStore(NewMemoryStorage())
	s.Initialize()
	assert.ErrorIs(t, s.Login("", alice), ErrInvalidSession)
	assert.False(t, s.IsAuthenticated())
}

func TestLoginLogoutReload(t *testing.T) {
	st := NewMemoryStorage()
	s := newStore(st)
	s.Initialize()

	require.NoError(t, s.Login("T", alice))
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "T", s.Credential())

	reloaded := newStore(st)
	assert.Equal(t, StateAuthenticated, reloaded.Initialize())
	sess, ok := reloaded.Current()
	require.True(t, ok)
	assert.Equal(t, alice, sess.Identity)

	s.Logout()
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, 0, st.Len())

	again := newStore(st)
	assert.Equal(t, StateUnauthenticated, again.Initialize())
}

func TestLoginStorageFailureLeavesMemory(t *testing.T) {
	tests := []struct {
		name    string
		failKey string
	}{
		{"token write fails", KeyToken},
		{"user write fails", KeyUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewMemoryStorage()
			s := newStore(st)
			s.Initialize()
			st.FailSet(tt.failKey, errors.New("quota exceeded"))

			err := s.Login("T", alice)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStorage)
			assert.Equal(t, StateUnauthenticated, s.State())
			assert.False(t, s.IsAuthenticated())
			assert.Equal(t, 0, st.Len(), "written keys must be rolled back")
		})
	}
}

func TestReloginStorageFailureKeepsPreviousPair(t *testing.T) {
	st := NewMemoryStorage()
	s := newStore(st)
	s.Initialize()
	require.NoError(t, s.Login("tok-a", alice))

	st.FailSet(KeyUser, errors.New("quota exceeded"))
	bob := domain.User{ID: 9, Name: "Bob", Role: "branch"}
	err := s.Login("tok-b", bob)
	require.ErrorIs(t, err, ErrStorage)

	sess, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "tok-a", sess.Credential)
	assert.Equal(t, alice, sess.Identity)

	token, ok, err := st.Get(KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-a", token)

	reloaded := newStore(st)
	reloaded.Initialize()
	assert.Equal(t, StateAuthenticated, reloaded.State())
	sess, ok = reloaded.Current()
	require.True(t, ok)
	assert.Equal(t, "tok-a", sess.Credential)
	assert.Equal(t, alice, sess.Identity)
}

// flakyTokenStorage fails every token write after the first n.
type flakyTokenStorage struct {
	*MemoryStorage
	n int
}

func (f *flakyTokenStorage) Set(key, value string) error {
	if key == KeyToken {
		if f.n == 0 {
			return errors.New("disk full")
		}
		f.n--
	}
	return f.MemoryStorage.Set(key, value)
}

func TestReloginRollbackFailureSignsOut(t *testing.T) {
	mem := NewMemoryStorage()
	st := &flakyTokenStorage{MemoryStorage: mem, n: 2}
	s := newStore(st)
	s.Initialize()
	require.NoError(t, s.Login("tok-a", alice))

	mem.FailSet(KeyUser, errors.New("quota exceeded"))
	require.ErrorIs(t, s.Login("tok-b", alice), ErrStorage)

	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Equal(t, 0, mem.Len())
}

func TestLogoutIgnoresStorageErrors(t *testing.T) {
	st := NewMemoryStorage()
	s := newStore(st)
	s.Initialize()
	require.NoError(t, s.Login("T", alice))

	st.FailRemove(KeyToken, errors.New("read-only"))
	s.Logout()
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, StateUnauthenticated, s.State())
}

func TestLogoutBeforeInitialize(t *testing.T) {
	st := NewMemoryStorage()
	require.NoError(t, st.Set(KeyToken, "T"))
	s := newStore(st)
	s.Logout()
	assert.Equal(t, StateUninitialized, s.State())
	assert.Equal(t, 0, st.Len())
}

func TestExpiresAt(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, ok := Session{Credential: tok}.ExpiresAt()
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = Session{Credential: "opaque-token"}.ExpiresAt()
	assert.False(t, ok)
}

func TestFileStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	fs := NewFileStorage(dir)

	_, ok, err := fs.Get(KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fs.Set(KeyToken, "T"))
	v, ok, err := fs.Get(KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "T", v)

	info, err := os.Stat(filepath.Join(dir, KeyToken))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	require.NoError(t, fs.Remove(KeyToken))
	require.NoError(t, fs.Remove(KeyToken))
	_, ok, err = fs.Get(KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStorageRejectsPathKeys(t *testing.T) {
	fs := NewFileStorage(t.TempDir())
	assert.Error(t, fs.Set("../escape", "x"))
	assert.Error(t, fs.Set("", "x"))
	_, _, err := fs.Get("a/b")
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "State(9)", State(9).String())
	assert.False(t, StateInitializing.Settled())
}
