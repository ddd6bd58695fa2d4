package enrich

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sydlexius/gigbook/internal/cache"
	"github.com/sydlexius/gigbook/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func artistStore(t *testing.T) *cache.Store[ArtistResult] {
	t.Helper()
	s := cache.NewStore[ArtistResult](filepath.Join(t.TempDir(), "artists.json"), testLogger())
	s.Load()
	return s
}

// fakeArtistProvider returns a canned answer and counts calls.
type fakeArtistProvider struct {
	name  provider.Name
	info  *provider.ArtistInfo
	err   error
	calls int
}

func (f *fakeArtistProvider) Name() provider.Name { return f.name }

func (f *fakeArtistProvider) GetArtistInfo(ctx context.Context, artistName string) (*provider.ArtistInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func TestArtistResolverFirstProviderWins(t *testing.T) {
	first := &fakeArtistProvider{
		name: provider.NameSpotify,
		info: &provider.ArtistInfo{Name: "New Order", Image: "https://img/new-order.jpg", Source: provider.NameSpotify},
	}
	second := &fakeArtistProvider{
		name: provider.NameAudioDB,
		info: &provider.ArtistInfo{Name: "New Order", Image: "https://img/other.jpg", Source: provider.NameAudioDB},
	}
	r := NewArtistResolver([]provider.ArtistProvider{first, second}, artistStore(t), testLogger())

	res, err := r.Resolve(context.Background(), "New Order")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.Provider != provider.NameSpotify {
		t.Errorf("provider = %s, want spotify", res.Provider)
	}
	if res.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", res.Confidence)
	}
	if second.calls != 0 {
		t.Errorf("second provider called %d times, want 0", second.calls)
	}
}

func TestArtistResolverSkipsResultWithoutImage(t *testing.T) {
	noImage := &fakeArtistProvider{
		name: provider.NameSpotify,
		info: &provider.ArtistInfo{Name: "The Cure", Source: provider.NameSpotify},
	}
	withImage := &fakeArtistProvider{
		name: provider.NameAudioDB,
		info: &provider.ArtistInfo{Name: "The Cure", Image: "https://img/cure.jpg", Source: provider.NameAudioDB},
	}
	r := NewArtistResolver([]provider.ArtistProvider{noImage, withImage}, artistStore(t), testLogger())

	res, err := r.Resolve(context.Background(), "The Cure")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res == nil || res.Provider != provider.NameAudioDB {
		t.Fatalf("expected audiodb result, got %+v", res)
	}
}

func TestArtistResolverSkipsImplausibleMatch(t *testing.T) {
	wrong := &fakeArtistProvider{
		name: provider.NameSpotify,
		info: &provider.ArtistInfo{Name: "Completely Different Band", Image: "https://img/x.jpg", Source: provider.NameSpotify},
	}
	right := &fakeArtistProvider{
		name: provider.NameLastFM,
		info: &provider.ArtistInfo{Name: "Depeche Mode", Image: "https://img/dm.jpg", Source: provider.NameLastFM},
	}
	r := NewArtistResolver([]provider.ArtistProvider{wrong, right}, artistStore(t), testLogger())

	res, err := r.Resolve(context.Background(), "Depeche Mode")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res == nil || res.Provider != provider.NameLastFM {
		t.Fatalf("expected lastfm result, got %+v", res)
	}
}

func TestArtistResolverFallsThroughProviderErrors(t *testing.T) {
	failing := &fakeArtistProvider{
		name: provider.NameSpotify,
		err:  &provider.ErrNotFound{Provider: provider.NameSpotify, Query: "Erasure"},
	}
	working := &fakeArtistProvider{
		name: provider.NameAudioDB,
		info: &provider.ArtistInfo{Name: "Erasure", Image: "https://img/erasure.jpg", Source: provider.NameAudioDB},
	}
	r := NewArtistResolver([]provider.ArtistProvider{failing, working}, artistStore(t), testLogger())

	res, err := r.Resolve(context.Background(), "Erasure")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res == nil || res.Provider != provider.NameAudioDB {
		t.Fatalf("expected audiodb result, got %+v", res)
	}
}

func TestArtistResolverServesPositiveFromCache(t *testing.T) {
	p := &fakeArtistProvider{
		name: provider.NameSpotify,
		info: &provider.ArtistInfo{Name: "OMD", Image: "https://img/omd.jpg", Source: provider.NameSpotify},
	}
	r := NewArtistResolver([]provider.ArtistProvider{p}, artistStore(t), testLogger())

	if _, err := r.Resolve(context.Background(), "OMD"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	res, err := r.Resolve(context.Background(), "OMD")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if res == nil || !res.FromCache {
		t.Fatalf("expected cached result, got %+v", res)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
}

func TestArtistResolverCachesNegativeOutcome(t *testing.T) {
	p := &fakeArtistProvider{
		name: provider.NameSpotify,
		err:  &provider.ErrNotFound{Provider: provider.NameSpotify, Query: "Nobody"},
	}
	r := NewArtistResolver([]provider.ArtistProvider{p}, artistStore(t), testLogger())

	for i := 0; i < 2; i++ {
		res, err := r.Resolve(context.Background(), "Nobody")
		if err != nil {
			t.Fatalf("Resolve %d: %v", i, err)
		}
		if res != nil {
			t.Fatalf("Resolve %d: expected nil result, got %+v", i, res)
		}
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1 (negative should be cached)", p.calls)
	}
}

func TestArtistResolverForceRefreshBypassesCache(t *testing.T) {
	p := &fakeArtistProvider{
		name: provider.NameSpotify,
		info: &provider.ArtistInfo{Name: "Yaz", Image: "https://img/yaz.jpg", Source: provider.NameSpotify},
	}
	r := NewArtistResolver([]provider.ArtistProvider{p}, artistStore(t), testLogger())

	if _, err := r.Resolve(context.Background(), "Yaz"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	r.SetForceRefresh(true)
	res, err := r.Resolve(context.Background(), "Yaz")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if res == nil || res.FromCache {
		t.Fatalf("expected fresh result, got %+v", res)
	}
	if p.calls != 2 {
		t.Errorf("provider called %d times, want 2", p.calls)
	}
}

func TestArtistResolverCacheKeyIgnoresFormatting(t *testing.T) {
	p := &fakeArtistProvider{
		name: provider.NameSpotify,
		info: &provider.ArtistInfo{Name: "Run-D.M.C.", Image: "https://img/rundmc.jpg", Source: provider.NameSpotify},
	}
	r := NewArtistResolver([]provider.ArtistProvider{p}, artistStore(t), testLogger())

	if _, err := r.Resolve(context.Background(), "Run-D.M.C."); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	res, err := r.Resolve(context.Background(), "RUN-D.M.C.")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if res == nil || !res.FromCache {
		t.Fatalf("expected cache hit for re-cased name, got %+v", res)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
}

func TestNameConfidence(t *testing.T) {
	tests := []struct {
		query  string
		result string
		want   float64
	}{
		{"New Order", "New Order", 1.0},
		{"Run-D.M.C.", "Run DMC", 1.0},
		{"Peter Hook", "Peter Hook & The Light", 0.8},
		{"The English Beat", "English Beat", 0.8},
		{"Depeche Mode", "Duran Duran", 0},
		{"", "Anything", 0},
	}
	for _, tt := range tests {
		if got := nameConfidence(tt.query, tt.result); got != tt.want {
			t.Errorf("nameConfidence(%q, %q) = %v, want %v", tt.query, tt.result, got, tt.want)
		}
	}
}
