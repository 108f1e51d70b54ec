package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func spotifyTrackItem(id, name string, durationMS int) map[string]any {
	return map[string]any{
		"track": map[string]any{
			"id":           id,
			"name":         name,
			"duration_ms":  durationMS,
			"track_number": 1,
			"artists":      []map[string]any{{"id": "a1", "name": "Artist"}},
			"album": map[string]any{
				"id":           "al1",
				"name":         "Album",
				"total_tracks": 10,
				"artists":      []map[string]any{{"id": "a1", "name": "Artist"}},
			},
			"external_ids": map[string]any{"isrc": "US" + id},
		},
	}
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"username":      "test_user",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "s"})
			if err == nil {
				t.Error("expected error for missing client_id")
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "c"})
			if err == nil {
				t.Error("expected error for missing client_secret")
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("WithAccessToken", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{
				"access_token": "test_access_token",
			})
			if err != nil {
				t.Errorf("expected no error with access token, got %v", err)
			}
			if srv.token == nil || srv.token.AccessToken != "test_access_token" {
				t.Error("expected token to be set")
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			if err := srv.Authenticate(context.Background(), map[string]string{}); err == nil {
				t.Error("expected error for missing credentials")
			}
		})
	})

	t.Run("Playlists filters by owner", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/playlists" {
				t.Errorf("expected path /me/playlists, got %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"id": "p1", "name": "Mine", "owner": map[string]any{"id": "test_user"}, "tracks": map[string]any{"total": 3}},
					{"id": "p2", "name": "Followed", "owner": map[string]any{"id": "someone_else"}, "tracks": map[string]any{"total": 9}},
				},
				"total": 2,
				"limit": 50,
				"next":  nil,
			})
		}))
		defer server.Close()

		srv := newTestSpotifyService(t, server.URL)
		playlists, err := srv.Playlists(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(playlists) != 1 {
			t.Fatalf("expected 1 playlist, got %d", len(playlists))
		}
		if playlists[0].ID != "p1" {
			t.Errorf("expected playlist p1, got %s", playlists[0].ID)
		}
		if playlists[0].TrackCount != 3 {
			t.Errorf("expected track count 3, got %d", playlists[0].TrackCount)
		}
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		t.Run("assembles pages in order", func(t *testing.T) {
			const total = 5
			const limit = 2

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
				var items []map[string]any
				for i := offset; i < offset+limit && i < total; i++ {
					items = append(items, spotifyTrackItem(fmt.Sprintf("t%d", i), fmt.Sprintf("Track %d", i), 200000))
				}
				var next *string
				if offset+limit < total {
					u := "more"
					next = &u
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{
					"items": items,
					"total": total,
					"limit": limit,
					"next":  next,
				})
			}))
			defer server.Close()

			srv := newTestSpotifyService(t, server.URL)
			tracks, err := srv.PlaylistTracks(context.Background(), "p1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(tracks) != total {
				t.Fatalf("expected %d tracks, got %d", total, len(tracks))
			}
			for i, track := range tracks {
				if track.ID != fmt.Sprintf("t%d", i) {
					t.Errorf("track %d out of order: got %s", i, track.ID)
				}
			}
			if tracks[0].ISRC != "USt0" {
				t.Errorf("expected ISRC USt0, got %s", tracks[0].ISRC)
			}
			if tracks[0].Duration() != 200.0 {
				t.Errorf("expected duration 200s, got %f", tracks[0].Duration())
			}
		})

		t.Run("drops null track entries", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{
					"items": []map[string]any{
						spotifyTrackItem("t1", "Track 1", 180000),
						{"track": nil},
						spotifyTrackItem("t2", "Track 2", 180000),
					},
					"total": 3,
					"limit": 50,
					"next":  nil,
				})
			}))
			defer server.Close()

			srv := newTestSpotifyService(t, server.URL)
			tracks, err := srv.PlaylistTracks(context.Background(), "p1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(tracks) != 2 {
				t.Fatalf("expected 2 tracks, got %d", len(tracks))
			}
		})
	})

	t.Run("FavoriteTracks returns oldest first", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/tracks" {
				t.Errorf("expected path /me/tracks, got %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					spotifyTrackItem("newest", "Newest", 180000),
					spotifyTrackItem("middle", "Middle", 180000),
					spotifyTrackItem("oldest", "Oldest", 180000),
				},
				"total": 3,
				"limit": 50,
				"next":  nil,
			})
		}))
		defer server.Close()

		srv := newTestSpotifyService(t, server.URL)
		tracks, err := srv.FavoriteTracks(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(tracks) != 3 {
			t.Fatalf("expected 3 tracks, got %d", len(tracks))
		}
		if tracks[0].ID != "oldest" || tracks[2].ID != "newest" {
			t.Errorf("expected oldest-first order, got %s..%s", tracks[0].ID, tracks[2].ID)
		}
	})

	t.Run("Token expiry maps to typed error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		srv := newTestSpotifyService(t, server.URL)
		_, err := srv.Playlists(context.Background())
		if err == nil {
			t.Fatal("expected error for 401 response")
		}
	})

	t.Run("Service Interface", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "c",
			"client_secret": "s",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		var _ SourceService = srv
		var _ OAuthService = srv
	})
}

// newTestSpotifyService returns an authenticated service pointed at a test server.
func newTestSpotifyService(t *testing.T, baseURL string) *SpotifyService {
	t.Helper()

	srv, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"username":      "test_user",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	srv.httpClient = http.DefaultClient
	srv.baseURL = baseURL
	return srv
}
