package resolve

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"gymatlas/internal/models"
	"gymatlas/pkg/location"
)

type fakeGeocoder struct {
	mu      sync.Mutex
	queries []string
	results map[string]*location.Result
	err     error
}

func (f *fakeGeocoder) Search(ctx context.Context, query string) (*location.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.results[query]; ok {
		return res, nil
	}
	return nil, location.ErrNoMatch
}

type mapCache struct {
	entries map[string]*location.Result
	sets    int
}

func (m *mapCache) GetResolution(_ context.Context, address string) (*location.Result, bool) {
	res, ok := m.entries[address]
	return res, ok
}

func (m *mapCache) SetResolution(_ context.Context, address string, res *location.Result) error {
	if m.entries == nil {
		m.entries = map[string]*location.Result{}
	}
	m.entries[address] = res
	m.sets++
	return nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestResolver(g Geocoder, cache ResolutionCache) *Resolver {
	return New(Config{
		Geocoder: g,
		Cache:    cache,
		Interval: time.Millisecond,
		Log:      quietLogger(),
	})
}

func TestBuildAddress(t *testing.T) {
	tests := []struct {
		name string
		gym  models.Gym
		want string
	}{
		{
			name: "all fields",
			gym:  models.Gym{Address: "12 Main Rd", Location: "Anna Nagar", City: "Chennai", State: "Tamil Nadu"},
			want: "12 Main Rd, Anna Nagar, Chennai, Tamil Nadu, India",
		},
		{
			name: "city only",
			gym:  models.Gym{City: "Chennai"},
			want: "Chennai, India",
		},
		{
			name: "empty",
			gym:  models.Gym{},
			want: "",
		},
		{
			name: "whitespace only",
			gym:  models.Gym{Address: "  ", City: "\t"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildAddress(tt.gym, "India"); got != tt.want {
				t.Errorf("BuildAddress = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveAll_SkipsGymsWithCoordinates(t *testing.T) {
	g := &fakeGeocoder{}
	r := newTestResolver(g, nil)

	gyms := []models.Gym{
		{ID: "1", City: "Chennai", Coordinates: &models.Coordinates{Lat: 13.08, Lng: 80.27}},
		{ID: "2", Coordinates: &models.Coordinates{Lat: 11.01, Lng: 76.95}},
	}

	out, summary, err := r.ResolveAll(context.Background(), gyms)
	if err != nil {
		t.Fatalf("ResolveAll returned error: %v", err)
	}
	if len(g.queries) != 0 {
		t.Errorf("expected zero lookups, got %d", len(g.queries))
	}
	if summary.Resolved != 2 {
		t.Errorf("Resolved = %d, want 2", summary.Resolved)
	}
	if out[0].Coordinates.Lat != 13.08 {
		t.Error("pre-set coordinates must pass through untouched")
	}
}

func TestResolveAll_SkipsAddresslessGyms(t *testing.T) {
	g := &fakeGeocoder{}
	r := newTestResolver(g, nil)

	out, summary, err := r.ResolveAll(context.Background(), []models.Gym{{ID: "1", Name: "Bare"}})
	if err != nil {
		t.Fatalf("ResolveAll returned error: %v", err)
	}
	if len(g.queries) != 0 {
		t.Errorf("expected zero lookups for addressless gym, got %d", len(g.queries))
	}
	if summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", summary.Skipped)
	}
	if out[0].HasCoordinates() {
		t.Error("addressless gym must stay coordinate-less")
	}
}

func TestResolveAll_MixedBatch(t *testing.T) {
	// One gym with city only, one already positioned: exactly one lookup.
	g := &fakeGeocoder{results: map[string]*location.Result{
		"Chennai, India": {Lat: 13.0827, Lng: 80.2707, DisplayName: "Chennai, Tamil Nadu, India"},
	}}
	r := newTestResolver(g, nil)

	gyms := []models.Gym{
		{ID: "1", City: "Chennai"},
		{ID: "2", Coordinates: &models.Coordinates{Lat: 13.08, Lng: 80.27}},
	}

	out, summary, err := r.ResolveAll(context.Background(), gyms)
	if err != nil {
		t.Fatalf("ResolveAll returned error: %v", err)
	}
	if len(g.queries) != 1 {
		t.Fatalf("expected exactly one lookup, got %d", len(g.queries))
	}
	if !out[0].HasCoordinates() || !out[1].HasCoordinates() {
		t.Error("both gyms should carry coordinates after resolution")
	}
	if out[0].FormattedAddress != "Chennai, Tamil Nadu, India" {
		t.Errorf("FormattedAddress = %q", out[0].FormattedAddress)
	}
	if summary.Resolved != 2 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestResolveAll_LookupFailureIsSilentSkip(t *testing.T) {
	g := &fakeGeocoder{err: errors.New("boom")}
	r := newTestResolver(g, nil)

	out, summary, err := r.ResolveAll(context.Background(), []models.Gym{{ID: "1", City: "Chennai"}})
	if err != nil {
		t.Fatalf("lookup failure must not fail the batch: %v", err)
	}
	if out[0].HasCoordinates() {
		t.Error("failed gym must stay coordinate-less")
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
}

func TestResolveAll_NoMatchCountsAsFailed(t *testing.T) {
	g := &fakeGeocoder{}
	r := newTestResolver(g, nil)

	_, summary, err := r.ResolveAll(context.Background(), []models.Gym{{ID: "1", City: "Atlantis"}})
	if err != nil {
		t.Fatalf("no-match must not fail the batch: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
}

func TestResolveAll_CacheHitAvoidsLookup(t *testing.T) {
	g := &fakeGeocoder{}
	cache := &mapCache{entries: map[string]*location.Result{
		"Chennai, India": {Lat: 13.08, Lng: 80.27, DisplayName: "Chennai"},
	}}
	r := newTestResolver(g, cache)

	out, summary, err := r.ResolveAll(context.Background(), []models.Gym{{ID: "1", City: "Chennai"}})
	if err != nil {
		t.Fatalf("ResolveAll returned error: %v", err)
	}
	if len(g.queries) != 0 {
		t.Errorf("cache hit must avoid lookup, got %d calls", len(g.queries))
	}
	if !out[0].HasCoordinates() {
		t.Error("cached resolution must attach coordinates")
	}
	if summary.Resolved != 1 {
		t.Errorf("Resolved = %d, want 1", summary.Resolved)
	}
}

func TestResolveAll_SuccessfulLookupIsCached(t *testing.T) {
	g := &fakeGeocoder{results: map[string]*location.Result{
		"Chennai, India": {Lat: 13.08, Lng: 80.27},
	}}
	cache := &mapCache{}
	r := newTestResolver(g, cache)

	if _, _, err := r.ResolveAll(context.Background(), []models.Gym{{ID: "1", City: "Chennai"}}); err != nil {
		t.Fatalf("ResolveAll returned error: %v", err)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
}

func TestResolveAll_SequentialOrder(t *testing.T) {
	g := &fakeGeocoder{results: map[string]*location.Result{}}
	r := newTestResolver(g, nil)

	gyms := []models.Gym{
		{ID: "1", City: "Chennai"},
		{ID: "2", City: "Madurai"},
		{ID: "3", City: "Salem"},
	}
	if _, _, err := r.ResolveAll(context.Background(), gyms); err != nil {
		t.Fatalf("ResolveAll returned error: %v", err)
	}

	want := []string{"Chennai, India", "Madurai, India", "Salem, India"}
	if len(g.queries) != len(want) {
		t.Fatalf("got %d lookups, want %d", len(g.queries), len(want))
	}
	for i, q := range want {
		if g.queries[i] != q {
			t.Errorf("lookup %d = %q, want %q", i, g.queries[i], q)
		}
	}
}

func TestResolveAll_CancelStopsBetweenLookups(t *testing.T) {
	g := &fakeGeocoder{results: map[string]*location.Result{}}
	r := New(Config{
		Geocoder: g,
		Interval: time.Hour, // the pause before the second lookup is where cancellation lands
		Log:      quietLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	gyms := []models.Gym{
		{ID: "1", City: "Chennai"},
		{ID: "2", City: "Madurai"},
	}
	out, _, err := r.ResolveAll(ctx, gyms)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(g.queries) != 1 {
		t.Errorf("expected one lookup before cancellation, got %d", len(g.queries))
	}
	if len(out) != 1 {
		t.Errorf("expected one processed gym, got %d", len(out))
	}
}

func TestResolveAll_ReportsProgress(t *testing.T) {
	g := &fakeGeocoder{}
	var seen []int
	r := New(Config{
		Geocoder: g,
		Interval: time.Millisecond,
		Progress: func(current, total int) {
			if total != 2 {
				t.Errorf("total = %d, want 2", total)
			}
			seen = append(seen, current)
		},
		Log: quietLogger(),
	})

	gyms := []models.Gym{{ID: "1"}, {ID: "2"}}
	if _, _, err := r.ResolveAll(context.Background(), gyms); err != nil {
		t.Fatalf("ResolveAll returned error: %v", err)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("progress calls = %v, want [1 2]", seen)
	}
}
