package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldcup-betting/internal/config"
	"worldcup-betting/internal/model"
)

const sampleFeed = `[
	{"id": "m1", "teamA": "IND", "teamB": "AUS", "startTime": "2026-06-11T15:00:00Z", "status": "COMPLETED", "winnerTeam": "IND"},
	{"id": "m2", "teamA": "ENG", "teamB": "NZ", "startTime": "2026-06-12T15:00:00Z", "status": "SCHEDULED", "winnerTeam": null}
]`

func TestDecode(t *testing.T) {
	patches, err := Decode([]byte(sampleFeed))
	require.NoError(t, err)
	require.Len(t, patches, 2)

	assert.Equal(t, "m1", patches[0].ID)
	assert.Equal(t, model.MatchCompleted, patches[0].Status)
	require.NotNil(t, patches[0].WinnerTeam)
	assert.Equal(t, "IND", *patches[0].WinnerTeam)
	assert.Equal(t, time.Date(2026, 6, 11, 15, 0, 0, 0, time.UTC), patches[0].StartTime.UTC())
	assert.Nil(t, patches[1].WinnerTeam)

	_, err = Decode([]byte(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matches.json")

	patches, err := NewFileProvider(path).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, patches)

	require.NoError(t, os.WriteFile(path, []byte(sampleFeed), 0o644))
	patches, err = NewFileProvider(path).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, patches, 2)
}

func TestHTTPProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/matches" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	patches, err := NewHTTPProvider(srv.URL+"/matches", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, patches, 2)

	_, err = NewHTTPProvider(srv.URL+"/missing", time.Second).Fetch(context.Background())
	assert.ErrorContains(t, err, "status 404")
}

func TestNew_PrefersURL(t *testing.T) {
	assert.IsType(t, &HTTPProvider{}, New(&config.FeedConfig{URL: "http://feed", Path: "x.json"}))
	assert.IsType(t, &FileProvider{}, New(&config.FeedConfig{Path: "x.json"}))
}
