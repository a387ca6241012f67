package users

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamed/tracker/pkg/auth"
	"github.com/seamed/tracker/pkg/observability"
	"github.com/seamed/tracker/pkg/storage/storagetest"
)

// fakeStore scripts CreateIfAbsent and Get results
type fakeStore struct {
	Store
	createErr  error
	getUser    *User
	getErr     error
	creates    int32
	createGate chan struct{}
}

func (f *fakeStore) CreateIfAbsent(ctx context.Context, user *User, settings *Settings) (bool, error) {
	atomic.AddInt32(&f.creates, 1)
	if f.createGate != nil {
		<-f.createGate
	}
	if f.createErr != nil {
		return false, f.createErr
	}
	return true, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*User, error) {
	return f.getUser, f.getErr
}

func quietLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
}

func TestProvisioner_CreatesUserWithDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewSQLStore(storagetest.NewSQLite(t))
	cache := NewSetCache()
	p := NewProvisioner(store, cache, WithLogger(quietLogger()))

	require.NoError(t, p.EnsureProvisioned(ctx, "00u1", "skipper@example.com"))

	user, err := store.Get(ctx, "00u1")
	require.NoError(t, err)
	assert.Equal(t, "skipper@example.com", user.Email)

	settings, err := store.GetSettings(ctx, "00u1")
	require.NoError(t, err)
	assert.Equal(t, DefaultLowStockThreshold, settings.LowStockThreshold)
	assert.True(t, cache.Has("00u1"))
}

func TestProvisioner_ConcurrentFirstRequests(t *testing.T) {
	ctx := context.Background()
	db := storagetest.NewSQLite(t)
	store := NewSQLStore(db)

	// two provisioners model two API replicas sharing one database
	replicas := []*Provisioner{
		NewProvisioner(store, NewSetCache(), WithLogger(quietLogger())),
		NewProvisioner(store, NewSetCache(), WithLogger(quietLogger())),
	}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(p *Provisioner) {
			defer wg.Done()
			errs <- p.EnsureProvisioned(ctx, "00u-race", "")
		}(replicas[i%2])
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	var users, settings int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users WHERE id = $1`, "00u-race").Scan(&users))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM user_settings WHERE user_id = $1`, "00u-race").Scan(&settings))
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, settings)
}

func TestProvisioner_CoalescesSameSubject(t *testing.T) {
	gate := make(chan struct{})
	store := &fakeStore{createGate: gate}
	p := NewProvisioner(store, NewSetCache(), WithLogger(quietLogger()))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.EnsureProvisioned(context.Background(), "00u1", ""))
		}()
	}

	// let the callers pile up behind the first store call
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&store.creates))
}

func TestProvisioner_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := storagetest.NewSQLite(t)
	store := NewSQLStore(db)

	require.NoError(t, NewProvisioner(store, NewSetCache(), WithLogger(quietLogger())).EnsureProvisioned(ctx, "00u1", ""))

	_, err := db.Exec(`UPDATE users SET first_name = $1, email = $2 WHERE id = $3`, "Grace", "grace@example.com", "00u1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		// fresh cache each time, as after a process restart
		p := NewProvisioner(store, NewSetCache(), WithLogger(quietLogger()))
		require.NoError(t, p.EnsureProvisioned(ctx, "00u1", "new@example.com"))
	}

	user, err := store.Get(ctx, "00u1")
	require.NoError(t, err)
	assert.Equal(t, "Grace", user.FirstName)
	assert.Equal(t, "grace@example.com", user.Email)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestProvisioner_AuditsNewUsersOnly(t *testing.T) {
	ctx := context.Background()
	store := NewSQLStore(storagetest.NewSQLite(t))
	var buf bytes.Buffer
	audit := auth.NewAuditLogger(observability.NewLogger(observability.InfoLevel, &buf))

	p := NewProvisioner(store, NewSetCache(), WithLogger(quietLogger()), WithAuditLogger(audit))
	require.NoError(t, p.EnsureProvisioned(ctx, "00u1", ""))
	assert.Equal(t, 1, strings.Count(buf.String(), auth.ActionUserProvision))
	assert.Contains(t, buf.String(), `"subject":"00u1"`)

	// existing user behind a cold cache
	p = NewProvisioner(store, NewSetCache(), WithLogger(quietLogger()), WithAuditLogger(audit))
	require.NoError(t, p.EnsureProvisioned(ctx, "00u1", ""))
	assert.Equal(t, 1, strings.Count(buf.String(), auth.ActionUserProvision))
}

func TestProvisioner_CacheHitSkipsStore(t *testing.T) {
	store := &fakeStore{}
	cache := NewSetCache()
	cache.Add("00u1")

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	p := NewProvisioner(store, cache, WithMetrics(metrics), WithLogger(quietLogger()))

	require.NoError(t, p.EnsureProvisioned(context.Background(), "00u1", ""))
	assert.Equal(t, int32(0), atomic.LoadInt32(&store.creates))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ProvisionCacheLookups.WithLabelValues("hit")))
}

func TestProvisioner_RecheckRecovers(t *testing.T) {
	store := &fakeStore{
		createErr: errors.New("duplicate key value violates unique constraint"),
		getUser:   &User{ID: "00u1"},
	}
	cache := NewSetCache()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	p := NewProvisioner(store, cache, WithMetrics(metrics), WithLogger(quietLogger()))

	require.NoError(t, p.EnsureProvisioned(context.Background(), "00u1", ""))
	assert.True(t, cache.Has("00u1"))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ProvisioningTotal.WithLabelValues("recovered")))
}

func TestProvisioner_Failure(t *testing.T) {
	storageErr := errors.New("relation \"users\" does not exist")

	tests := []struct {
		name   string
		getErr error
	}{
		{"user still missing", ErrNotFound},
		{"recheck fails transiently", errors.New("connection reset by peer")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{createErr: storageErr, getErr: tt.getErr}
			cache := NewSetCache()
			p := NewProvisioner(store, cache, WithLogger(quietLogger()))

			err := p.EnsureProvisioned(context.Background(), "00u1", "")
			require.Error(t, err)

			var provErr *ProvisioningError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, "00u1", provErr.Subject)
			assert.ErrorIs(t, err, storageErr)
			assert.False(t, cache.Has("00u1"))
		})
	}
}

func TestProvisioner_CallerCancelled(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	p := NewProvisioner(&fakeStore{createGate: gate}, NewSetCache(), WithLogger(quietLogger()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.EnsureProvisioned(ctx, "00u1", "")
	var provErr *ProvisioningError
	require.ErrorAs(t, err, &provErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
