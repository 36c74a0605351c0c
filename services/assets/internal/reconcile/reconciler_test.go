package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goconsole/pkg/optional"
	"github.com/goconsole/services/assets/internal/asset"
	"github.com/goconsole/services/assets/internal/remote"
	"github.com/goconsole/services/assets/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://cdn.example.com"

type fakeProber struct {
	mu      sync.Mutex
	calls   []string
	fail    func(url string) bool
	etag    string
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeProber) Probe(ctx context.Context, url string, timeout time.Duration) (remote.ProbeResult, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	if err := ctx.Err(); err != nil {
		return remote.ProbeResult{}, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if f.fail != nil && f.fail(url) {
		return remote.ProbeResult{}, errors.New("connection refused")
	}
	res := remote.ProbeResult{OK: true, Status: 200}
	if f.etag != "" {
		res.ETag = optional.Some(f.etag)
	}
	return res, nil
}

func (f *fakeProber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSkins struct {
	skins []string
	err   error
	calls atomic.Int32
}

func (f *fakeSkins) FetchSkins(ctx context.Context, baseURL string) ([]string, error) {
	f.calls.Add(1)
	return f.skins, f.err
}

func newTestReconciler(prober Prober, skins SkinSource) (*Reconciler, *state.Store) {
	store := state.NewStore(asset.DefaultCatalog(), baseURL)
	return New(store, prober, skins, Options{Concurrency: 3}), store
}

func TestReconcileProbesEveryAssetAndVariant(t *testing.T) {
	prober := &fakeProber{etag: "e1"}
	r, store := newTestReconciler(prober, &fakeSkins{})
	store.SetSkin("dark")
	now := time.UnixMilli(1_700_000_000_000)

	report := r.ReconcileOnColdStart(context.Background(), now)
	n := len(probeable(store.Catalog()))
	assert.Equal(t, []asset.VariantKey{asset.Base, "skin:dark"}, report.Variants)
	assert.Equal(t, 2*n, report.Probed)
	assert.Equal(t, 2*n, report.Succeeded)
	assert.Equal(t, 2*n, prober.count())
	assert.LessOrEqual(t, prober.maxSeen.Load(), int32(3))
	for _, u := range prober.calls {
		assert.NotContains(t, u, "docs.goconsole.dev", "absolute urls are not probed")
	}

	m, ok := store.Meta("desktop.loading", "skin:dark")
	require.True(t, ok)
	assert.Equal(t, optional.Some("e1"), m.ETag)
	assert.Equal(t, optional.Some(now.UnixMilli()), m.LastOkAt)
	assert.Equal(t, optional.Some(now.UnixMilli()), store.LastColdStartCheck("skin:dark"))

	u, err := store.ResolveURL("desktop.loading")
	require.NoError(t, err)
	assert.Equal(t, baseURL+"/icon/desktop/dark/load.gif?v=e1", u)
}

func TestReconcileThrottle(t *testing.T) {
	prober := &fakeProber{}
	r, store := newTestReconciler(prober, &fakeSkins{})
	n := len(probeable(store.Catalog()))
	start := time.UnixMilli(1_700_000_000_000)

	r.ReconcileOnColdStart(context.Background(), start)
	assert.Equal(t, n, prober.count())

	report := r.ReconcileOnColdStart(context.Background(), start.Add(5*time.Hour))
	assert.Empty(t, report.Variants)
	assert.Equal(t, n, prober.count(), "no second probe inside the window")

	r.ReconcileOnColdStart(context.Background(), start.Add(6*time.Hour+time.Second))
	assert.Equal(t, 2*n, prober.count(), "probes again once the window has passed")
}

func TestReconcileFailuresAreIsolated(t *testing.T) {
	prober := &fakeProber{fail: func(url string) bool { return strings.HasSuffix(url, "logo.png") }}
	r, store := newTestReconciler(prober, &fakeSkins{})
	now := time.UnixMilli(5_000)

	report := r.ReconcileOnColdStart(context.Background(), now)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, len(probeable(store.Catalog()))-1, report.Succeeded)

	logo, _ := store.Meta("desktop.logo", asset.Base)
	assert.Equal(t, 1, logo.FailCount)
	assert.False(t, logo.Unavailable)
	assert.Equal(t, optional.Some[int64](5_000), logo.LastFailAt)
	assert.False(t, logo.LastOkAt.IsSome())

	tray, _ := store.Meta("desktop.tray", asset.Base)
	assert.Zero(t, tray.FailCount)
	assert.Equal(t, optional.Some[int64](5_000), tray.LastOkAt)
}

func TestReconcileKeepsStickyUnavailable(t *testing.T) {
	prober := &fakeProber{fail: func(url string) bool { return strings.Contains(url, "/dark/") }}
	r, store := newTestReconciler(prober, &fakeSkins{})
	store.SetSkin("dark")
	require.True(t, store.MarkSkinVariantUnavailable("desktop.loading", "dark", 1))

	r.ReconcileOnColdStart(context.Background(), time.UnixMilli(10_000))
	m, _ := store.Meta("desktop.loading", "skin:dark")
	assert.True(t, m.Unavailable)

	prober.fail = nil
	r.ReconcileOnColdStart(context.Background(), time.UnixMilli(10_000).Add(7*time.Hour))
	m, _ = store.Meta("desktop.loading", "skin:dark")
	assert.False(t, m.Unavailable)
}

func TestReconcileCanceledLeavesStateUntouched(t *testing.T) {
	prober := &fakeProber{}
	r, store := newTestReconciler(prober, &fakeSkins{})
	store.SetSkin("dark")
	now := time.UnixMilli(1_700_000_000_000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := r.ReconcileOnColdStart(ctx, now)
	assert.True(t, report.Canceled)
	assert.Zero(t, report.Probed)
	assert.False(t, store.LastColdStartCheck(asset.Base).IsSome())
	assert.False(t, store.LastColdStartCheck("skin:dark").IsSome())
	logo, _ := store.Meta("desktop.logo", asset.Base)
	assert.Zero(t, logo.FailCount)
	assert.False(t, logo.LastFailAt.IsSome())

	report = r.ReconcileOnColdStart(context.Background(), now.Add(time.Minute))
	assert.False(t, report.Canceled)
	assert.Equal(t, 2*len(probeable(store.Catalog())), report.Probed)
}

func TestReconcileWithoutBaseURL(t *testing.T) {
	prober := &fakeProber{}
	store := state.NewStore(asset.DefaultCatalog(), "")
	r := New(store, prober, &fakeSkins{}, Options{})

	report := r.ReconcileOnColdStart(context.Background(), time.Now())
	assert.Zero(t, report.Probed)
	assert.Zero(t, prober.count())
	assert.False(t, store.LastColdStartCheck(asset.Base).IsSome())
}

func TestResetCacheAndRefresh(t *testing.T) {
	prober := &fakeProber{}
	skins := &fakeSkins{skins: []string{"light", "dark", "dark"}}
	r, store := newTestReconciler(prober, skins)
	now := time.UnixMilli(1_000_000)

	r.ReconcileOnColdStart(context.Background(), now)
	require.True(t, store.MarkSkinVariantUnavailable("desktop.loading", "dark", 2))
	first := prober.count()

	report := r.ResetCacheAndRefresh(context.Background(), now.Add(time.Minute))
	assert.Equal(t, []string{"dark", "light"}, store.Skins())
	assert.Equal(t, first*2, prober.count(), "throttle map is cleared by reset")
	assert.Equal(t, first, report.Probed)
	_, ok := store.Meta("desktop.loading", "skin:dark")
	assert.False(t, ok)
}

func TestResetSwallowsFailures(t *testing.T) {
	prober := &fakeProber{fail: func(string) bool { return true }}
	skins := &fakeSkins{err: errors.New("dns failure")}
	r, store := newTestReconciler(prober, skins)
	store.SetSkins([]string{"old"})

	report := r.ResetCacheAndRefresh(context.Background(), time.UnixMilli(1))
	assert.Equal(t, report.Probed, report.Failed)
	assert.Empty(t, store.Skins())
	assert.Equal(t, int32(1), skins.calls.Load())
}

func TestRefreshSkins(t *testing.T) {
	skins := &fakeSkins{skins: []string{"b", "a"}}
	r, store := newTestReconciler(&fakeProber{}, skins)

	got, err := r.RefreshSkins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, got, store.Skins())

	skins.err = errors.New("boom")
	_, err = r.RefreshSkins(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, store.Skins(), "failed refresh keeps the old list")
}
