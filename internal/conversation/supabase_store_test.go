package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePostgrest struct {
	mu       sync.Mutex
	rows     map[string]UserSession
	requests []string
	fail     bool
}

func (f *fakePostgrest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"code":"XX000","message":"boom"}`)
		return
	}
	switch r.Method {
	case http.MethodGet:
		userID := strings.TrimPrefix(r.URL.Query().Get("user_id"), "eq.")
		out := []UserSession{}
		if row, ok := f.rows[userID]; ok {
			out = append(out, row)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	case http.MethodPost:
		var row UserSession
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"code":"PGRST102","message":"bad body"}`)
			return
		}
		f.rows[row.UserID] = row
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestSupabaseStore(t *testing.T, backend *fakePostgrest) *SupabaseStore {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	store, err := NewSupabaseStore(srv.URL, "service-key", "")
	require.NoError(t, err)
	return store
}

func TestSupabaseStoreFindDoesNotCreate(t *testing.T) {
	backend := &fakePostgrest{rows: map[string]UserSession{}}
	store := newTestSupabaseStore(t, backend)

	_, err := store.Find(context.Background(), testUser)
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, backend.rows)
	for _, req := range backend.requests {
		assert.True(t, strings.HasPrefix(req, http.MethodGet), "unexpected write %s", req)
	}
}

func TestSupabaseStoreRoundTrip(t *testing.T) {
	backend := &fakePostgrest{rows: map[string]UserSession{}}
	store := newTestSupabaseStore(t, backend)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, StateInit, sess.State)
	assert.Contains(t, backend.rows, testUser)

	sess.State = StateAwaitingService
	sess.CapturedName = "Luis"
	require.NoError(t, store.Update(ctx, sess))

	again, err := store.GetOrCreate(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingService, again.State)
	assert.Equal(t, "Luis", again.CapturedName)

	for _, req := range backend.requests {
		assert.True(t, strings.HasSuffix(req, "/user_sessions"), "unexpected request %s", req)
	}
}

func TestSupabaseStoreBackendFailure(t *testing.T) {
	backend := &fakePostgrest{rows: map[string]UserSession{}, fail: true}
	store := newTestSupabaseStore(t, backend)

	_, err := store.GetOrCreate(context.Background(), testUser)
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "get", storeErr.Op)
}

func TestNewSupabaseStoreRequiresCredentials(t *testing.T) {
	_, err := NewSupabaseStore("", "key", "")
	assert.Error(t, err)
	_, err = NewSupabaseStore("http://localhost", "", "")
	assert.Error(t, err)
}
