package audiodb

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sydlexius/gigbook/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

const searchBody = `{
  "artists": [
    {
      "idArtist": "111279",
      "strArtist": "Depeche Mode",
      "strGenre": "Electronic",
      "strStyle": "Synthpop",
      "strBiographyEN": "Depeche Mode are an English electronic band.",
      "intFormedYear": "1980",
      "strArtistThumb": "https://img.audiodb/depeche-mode.jpg"
    }
  ]
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/2/search.php" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("s") == "nonexistent" {
			w.Write([]byte(`{"artists":null}`))
			return
		}
		w.Write([]byte(searchBody))
	}))
}

func TestGetArtistInfo(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := NewWithBaseURL(provider.NewRateLimiterMap(), testLogger(), "2", srv.URL)

	info, err := a.GetArtistInfo(context.Background(), "Depeche Mode")
	if err != nil {
		t.Fatalf("GetArtistInfo: %v", err)
	}
	if info.Name != "Depeche Mode" {
		t.Errorf("name = %q", info.Name)
	}
	if info.Source != provider.NameAudioDB {
		t.Errorf("source = %q, want theaudiodb", info.Source)
	}
	if info.Image != "https://img.audiodb/depeche-mode.jpg" {
		t.Errorf("image = %q", info.Image)
	}
	if info.Formed != "1980" {
		t.Errorf("formed = %q", info.Formed)
	}
	if info.Bio == "" {
		t.Error("expected non-empty bio")
	}
	// Genre and style both map when they differ.
	if len(info.Genres) != 2 || info.Genres[0] != "Electronic" || info.Genres[1] != "Synthpop" {
		t.Errorf("genres = %v", info.Genres)
	}
}

func TestMapArtistCollapsesStyleEqualToGenre(t *testing.T) {
	info := mapArtist(&audioDBArtist{Artist: "Erasure", Genre: "Synthpop", Style: "Synthpop"})
	if len(info.Genres) != 1 {
		t.Errorf("genres = %v, want style collapsed into genre", info.Genres)
	}
}

func TestGetArtistInfoNotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := NewWithBaseURL(provider.NewRateLimiterMap(), testLogger(), "2", srv.URL)

	_, err := a.GetArtistInfo(context.Background(), "nonexistent")
	var notFound *provider.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	a := NewWithBaseURL(provider.NewRateLimiterMap(), testLogger(), "2", srv.URL)

	_, err := a.GetArtistInfo(context.Background(), "Depeche Mode")
	var unavailable *provider.ErrUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
