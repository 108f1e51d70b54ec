// Spotify API implementation of [SourceService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/lunamare/tidesync/internal/models"
	"github.com/lunamare/tidesync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Spotify caps page sizes at 50 items.
	spotifyPageLimit = 50

	// Field filter keeping playlist-track responses to what the matcher consumes.
	spotifyTrackFields = "next,total,limit,items(track(name,album(name,artists,total_tracks),artists,track_number,duration_ms,id,external_ids(isrc)))"

	// Pagination requests fired in parallel stay under this rate.
	spotifyPageRate = 5.0
)

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	TotalTracks int             `json:"total_tracks"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	TrackNumber int             `json:"track_number"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
}

type spotifyOwner struct {
	ID string `json:"id"`
}

type spotifyPlaylistTracksRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Owner       spotifyOwner             `json:"owner"`
	Tracks      spotifyPlaylistTracksRef `json:"tracks"`
}

// spotifyPage is the shared shape of Spotify's paginated responses.
type spotifyPage[T any] struct {
	Items []T     `json:"items"`
	Total int     `json:"total"`
	Limit int     `json:"limit"`
	Next  *string `json:"next"`
}

// spotifyPlaylistItem wraps a track inside a playlist or saved-tracks page.
// The inner track is null for entries Spotify can no longer resolve.
type spotifyPlaylistItem struct {
	Track *SpotifyTrack `json:"track"`
}

// SpotifyService implements [SourceService].
// Uses [oauth2] for authentication and gathers paginated track fetches in parallel.
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	username   string
	baseURL    string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
			"user-library-read",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		username:   credentials["username"],
		baseURL:    spotifyBaseURL,
	}, nil
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.token = &oauth2.Token{AccessToken: accessToken}
		s.httpClient = s.config.Client(ctx, s.token)
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.token = token
		s.httpClient = s.config.Client(ctx, s.token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// SetToken installs a previously obtained OAuth2 token.
func (s *SpotifyService) SetToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	s.httpClient = s.config.Client(ctx, token)
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the service's OAuth2 configuration.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// doRequest performs an authenticated GET request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: spotify returned 401", shared.ErrTokenExpired)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Playlists retrieves all playlists owned by the configured user.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	offset := 0

	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", spotifyPageLimit, offset)
		var page spotifyPage[SpotifyPlaylist]
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			if s.username != "" && sp.Owner.ID != s.username {
				continue
			}
			playlists = append(playlists, models.Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				TrackCount:  sp.Tracks.Total,
			})
		}

		if page.Next == nil {
			break
		}
		offset += spotifyPageLimit
	}

	return playlists, nil
}

// Playlist retrieves a specific playlist by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var sp SpotifyPlaylist
	if err := s.doRequest(ctx, fmt.Sprintf("/playlists/%s", playlistID), &sp); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPlaylistNotFound, err)
	}

	return &models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		TrackCount:  sp.Tracks.Total,
	}, nil
}

// PlaylistTracks retrieves the full ordered track list of a playlist.
//
// The first page is fetched synchronously; the remaining pages are fetched
// in parallel under a rate limiter and reassembled in offset order.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.SourceTrack, error) {
	fetch := func(ctx context.Context, offset int) (spotifyPage[spotifyPlaylistItem], error) {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?fields=%s&limit=%d&offset=%d",
			playlistID, url.QueryEscape(spotifyTrackFields), spotifyPageLimit, offset)
		var page spotifyPage[spotifyPlaylistItem]
		err := s.doRequest(ctx, endpoint, &page)
		return page, err
	}
	return s.fetchAllTracks(ctx, fetch)
}

// FavoriteTracks retrieves the user's saved tracks, oldest first.
//
// Spotify returns saved tracks newest-first; the result is reversed so the
// sync preserves the order tracks were saved in.
func (s *SpotifyService) FavoriteTracks(ctx context.Context) ([]models.SourceTrack, error) {
	fetch := func(ctx context.Context, offset int) (spotifyPage[spotifyPlaylistItem], error) {
		endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", spotifyPageLimit, offset)
		var page spotifyPage[spotifyPlaylistItem]
		err := s.doRequest(ctx, endpoint, &page)
		return page, err
	}

	tracks, err := s.fetchAllTracks(ctx, fetch)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(tracks)-1; i < j; i, j = i+1, j-1 {
		tracks[i], tracks[j] = tracks[j], tracks[i]
	}
	return tracks, nil
}

// fetchAllTracks drains a paginated track listing, gathering the pages
// after the first in parallel.
func (s *SpotifyService) fetchAllTracks(ctx context.Context, fetch func(context.Context, int) (spotifyPage[spotifyPlaylistItem], error)) ([]models.SourceTrack, error) {
	first, err := fetch(ctx, 0)
	if err != nil {
		return nil, err
	}

	tracks := itemsToSourceTracks(first.Items)
	if first.Next == nil || first.Limit <= 0 {
		return tracks, nil
	}

	var offsets []int
	for offset := first.Limit; offset < first.Total; offset += first.Limit {
		offsets = append(offsets, offset)
	}

	limiter := rate.NewLimiter(rate.Limit(spotifyPageRate), 1)
	pages := make([][]models.SourceTrack, len(offsets))
	errs := make([]error, len(offsets))

	var wg sync.WaitGroup
	for i, offset := range offsets {
		wg.Add(1)
		go func(i, offset int) {
			defer wg.Done()
			if err := limiter.Wait(ctx); err != nil {
				errs[i] = err
				return
			}
			page, err := fetch(ctx, offset)
			if err != nil {
				errs[i] = err
				return
			}
			pages[i] = itemsToSourceTracks(page.Items)
		}(i, offset)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for _, page := range pages {
		tracks = append(tracks, page...)
	}
	return tracks, nil
}

// itemsToSourceTracks converts wire items to model tracks, dropping null entries.
func itemsToSourceTracks(items []spotifyPlaylistItem) []models.SourceTrack {
	tracks := make([]models.SourceTrack, 0, len(items))
	for _, item := range items {
		if item.Track == nil {
			continue
		}
		tracks = append(tracks, item.Track.toSourceTrack())
	}
	return tracks
}

func (t *SpotifyTrack) toSourceTrack() models.SourceTrack {
	track := models.SourceTrack{
		ID:          t.ID,
		Name:        t.Name,
		DurationMS:  t.DurationMS,
		Album:       t.Album.Name,
		TrackNumber: t.TrackNumber,
		ISRC:        t.ExternalIDs.ISRC,
	}
	for _, artist := range t.Artists {
		track.Artists = append(track.Artists, artist.Name)
	}
	for _, artist := range t.Album.Artists {
		track.AlbumArtists = append(track.AlbumArtists, artist.Name)
	}
	return track
}
