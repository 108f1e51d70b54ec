// Tidal API implementation of [CatalogService]
//
// Response shapes follow the v1 API used by the desktop clients.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/lunamare/tidesync/internal/models"
	"github.com/lunamare/tidesync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	tidalAuthURL  = "https://login.tidal.com/authorize"
	tidalTokenURL = "https://auth.tidal.com/v1/oauth2/token"
	tidalBaseURL  = "https://api.tidal.com/v1"

	tidalPageLimit = 100

	// Search responses are ranked; anything past the first page is noise.
	tidalSearchLimit = 50

	// Playlist mutations are chunked to stay under the API's item cap.
	tidalChunkSize = 100
)

// TidalArtist represents a Tidal artist.
type TidalArtist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TidalTrack represents a Tidal track.
type TidalTrack struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	Version         string        `json:"version"`
	Artists         []TidalArtist `json:"artists"`
	Duration        int           `json:"duration"`
	ISRC            string        `json:"isrc"`
	StreamReady     bool          `json:"streamReady"`
	AllowStreaming  bool          `json:"allowStreaming"`
	TrackNumber     int           `json:"trackNumber"`
	AudioModes      []string      `json:"audioModes"`
	ExplicitContent bool          `json:"explicit"`
}

// TidalAlbum represents a Tidal album.
type TidalAlbum struct {
	ID             int64         `json:"id"`
	Title          string        `json:"title"`
	Artists        []TidalArtist `json:"artists"`
	NumberOfTracks int           `json:"numberOfTracks"`
}

// TidalPlaylist represents a Tidal playlist.
type TidalPlaylist struct {
	UUID           string `json:"uuid"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	NumberOfTracks int    `json:"numberOfTracks"`
}

type tidalPage[T any] struct {
	Items              []T `json:"items"`
	Limit              int `json:"limit"`
	Offset             int `json:"offset"`
	TotalNumberOfItems int `json:"totalNumberOfItems"`
}

type tidalSearchResult struct {
	Albums tidalPage[TidalAlbum] `json:"albums"`
	Tracks tidalPage[TidalTrack] `json:"tracks"`
}

type tidalFavoriteItem struct {
	Item TidalTrack `json:"item"`
}

type tidalSession struct {
	UserID      int64  `json:"userId"`
	CountryCode string `json:"countryCode"`
}

// TidalService implements [CatalogService].
//
// Transient failures (HTTP 429, 5xx, transport errors) are wrapped with
// [shared.ErrTransient] so the search scheduler can retry them.
type TidalService struct {
	config      *oauth2.Config
	token       *oauth2.Token
	httpClient  *http.Client
	userID      int64
	countryCode string
	baseURL     string
}

// NewTidalService creates a new Tidal service with the given OAuth2 credentials.
func NewTidalService(credentials map[string]string) (*TidalService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: credentials["client_secret"],
		RedirectURL:  redirectURI,
		Scopes:       []string{"r_usr", "w_usr"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  tidalAuthURL,
			TokenURL: tidalTokenURL,
		},
	}

	return &TidalService{
		config:      config,
		httpClient:  http.DefaultClient,
		countryCode: "US",
		baseURL:     tidalBaseURL,
	}, nil
}

// Authenticate establishes a Tidal session from an access token or auth code
// and resolves the session's user id and country code.
func (s *TidalService) Authenticate(ctx context.Context, credentials map[string]string) error {
	switch {
	case credentials["access_token"] != "":
		s.token = &oauth2.Token{AccessToken: credentials["access_token"]}
		s.httpClient = s.config.Client(ctx, s.token)
	case credentials["auth_code"] != "":
		token, err := s.config.Exchange(ctx, credentials["auth_code"])
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.token = token
		s.httpClient = s.config.Client(ctx, s.token)
	default:
		return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
	}

	var session tidalSession
	if err := s.doRequest(ctx, http.MethodGet, "/sessions", nil, &session); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	s.userID = session.UserID
	if session.CountryCode != "" {
		s.countryCode = session.CountryCode
	}
	return nil
}

// SetToken installs a previously obtained OAuth2 token.
func (s *TidalService) SetToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	s.httpClient = s.config.Client(ctx, token)
}

func (s *TidalService) Name() string {
	return "Tidal"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *TidalService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// GetOAuthConfig returns the service's OAuth2 configuration.
func (s *TidalService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// doRequest performs an authenticated request against the Tidal API and
// classifies rate-limit and transport failures as transient.
func (s *TidalService) doRequest(ctx context.Context, method, endpoint string, form url.Values, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	apiURL := s.baseURL + endpoint + sep + "countryCode=" + s.countryCode

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: tidal returned 429", shared.ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: tidal returned %d", shared.ErrTransient, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: tidal returned 401", shared.ErrTokenExpired)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: tidal API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Playlists retrieves all playlists owned by the authenticated user.
func (s *TidalService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	offset := 0

	for {
		endpoint := fmt.Sprintf("/users/%d/playlists?limit=%d&offset=%d", s.userID, tidalPageLimit, offset)
		var page tidalPage[TidalPlaylist]
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, tp := range page.Items {
			playlists = append(playlists, models.Playlist{
				ID:          tp.UUID,
				Name:        tp.Title,
				Description: tp.Description,
				TrackCount:  tp.NumberOfTracks,
			})
		}

		offset += len(page.Items)
		if offset >= page.TotalNumberOfItems || len(page.Items) == 0 {
			break
		}
	}

	return playlists, nil
}

// CreatePlaylist creates a new empty playlist.
func (s *TidalService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	form := url.Values{"title": {name}, "description": {description}}
	endpoint := fmt.Sprintf("/users/%d/playlists", s.userID)

	var tp TidalPlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, form, &tp); err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	return &models.Playlist{ID: tp.UUID, Name: tp.Title, Description: tp.Description}, nil
}

// PlaylistTracks retrieves the full ordered track list of a playlist.
func (s *TidalService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.CatalogTrack, error) {
	var tracks []models.CatalogTrack
	offset := 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, tidalPageLimit, offset)
		var page tidalPage[TidalTrack]
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, tt := range page.Items {
			tracks = append(tracks, tt.toCatalogTrack())
		}

		offset += len(page.Items)
		if offset >= page.TotalNumberOfItems || len(page.Items) == 0 {
			break
		}
	}

	return tracks, nil
}

// FavoriteTracks retrieves the user's favorite tracks ordered by date added.
func (s *TidalService) FavoriteTracks(ctx context.Context) ([]models.CatalogTrack, error) {
	var tracks []models.CatalogTrack
	offset := 0

	for {
		endpoint := fmt.Sprintf("/users/%d/favorites/tracks?order=DATE&limit=%d&offset=%d", s.userID, tidalPageLimit, offset)
		var page tidalPage[tidalFavoriteItem]
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			tracks = append(tracks, item.Item.toCatalogTrack())
		}

		offset += len(page.Items)
		if offset >= page.TotalNumberOfItems || len(page.Items) == 0 {
			break
		}
	}

	return tracks, nil
}

// SearchAlbums runs an album query and returns ranked candidates.
func (s *TidalService) SearchAlbums(ctx context.Context, query string) ([]models.CatalogAlbum, error) {
	endpoint := fmt.Sprintf("/search?query=%s&types=ALBUMS&limit=%d", url.QueryEscape(query), tidalSearchLimit)

	var result tidalSearchResult
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}

	albums := make([]models.CatalogAlbum, 0, len(result.Albums.Items))
	for _, ta := range result.Albums.Items {
		album := models.CatalogAlbum{
			ID:        fmt.Sprintf("%d", ta.ID),
			Name:      ta.Title,
			NumTracks: ta.NumberOfTracks,
		}
		for _, artist := range ta.Artists {
			album.Artists = append(album.Artists, artist.Name)
		}
		albums = append(albums, album)
	}
	return albums, nil
}

// SearchTracks runs a track query and returns ranked candidates.
func (s *TidalService) SearchTracks(ctx context.Context, query string) ([]models.CatalogTrack, error) {
	endpoint := fmt.Sprintf("/search?query=%s&types=TRACKS&limit=%d", url.QueryEscape(query), tidalSearchLimit)

	var result tidalSearchResult
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}

	tracks := make([]models.CatalogTrack, 0, len(result.Tracks.Items))
	for _, tt := range result.Tracks.Items {
		tracks = append(tracks, tt.toCatalogTrack())
	}
	return tracks, nil
}

// AlbumTracks retrieves an album's full track list in album order.
func (s *TidalService) AlbumTracks(ctx context.Context, albumID string) ([]models.CatalogTrack, error) {
	var tracks []models.CatalogTrack
	offset := 0

	for {
		endpoint := fmt.Sprintf("/albums/%s/tracks?limit=%d&offset=%d", albumID, tidalPageLimit, offset)
		var page tidalPage[TidalTrack]
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, tt := range page.Items {
			tracks = append(tracks, tt.toCatalogTrack())
		}

		offset += len(page.Items)
		if offset >= page.TotalNumberOfItems || len(page.Items) == 0 {
			break
		}
	}

	return tracks, nil
}

// AddPlaylistTracks appends tracks to the end of a playlist in chunks.
func (s *TidalService) AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	for start := 0; start < len(trackIDs); start += tidalChunkSize {
		end := min(start+tidalChunkSize, len(trackIDs))
		form := url.Values{
			"trackIds":           {strings.Join(trackIDs[start:end], ",")},
			"onDupes":            {"SKIP"},
			"onArtifactNotFound": {"SKIP"},
		}
		endpoint := fmt.Sprintf("/playlists/%s/items", playlistID)
		if err := s.doRequest(ctx, http.MethodPost, endpoint, form, nil); err != nil {
			return fmt.Errorf("failed to add tracks to playlist: %w", err)
		}
	}
	return nil
}

// SetPlaylistTracks replaces a playlist's contents with the given tracks.
//
// The API has no atomic replace; the playlist is cleared then refilled.
func (s *TidalService) SetPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	existing, err := s.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return err
	}

	if len(existing) > 0 {
		endpoint := fmt.Sprintf("/playlists/%s/items/%s", playlistID, indexRange(len(existing)))
		if err := s.doRequest(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
			return fmt.Errorf("failed to clear playlist: %w", err)
		}
	}

	return s.AddPlaylistTracks(ctx, playlistID, trackIDs)
}

// AddFavorites appends tracks to the user's favorites.
func (s *TidalService) AddFavorites(ctx context.Context, trackIDs []string) error {
	endpoint := fmt.Sprintf("/users/%d/favorites/tracks", s.userID)
	for _, id := range trackIDs {
		form := url.Values{"trackId": {id}}
		if err := s.doRequest(ctx, http.MethodPost, endpoint, form, nil); err != nil {
			return fmt.Errorf("failed to favorite track %s: %w", id, err)
		}
	}
	return nil
}

// SetFavorites replaces the user's favorites with the given tracks.
func (s *TidalService) SetFavorites(ctx context.Context, trackIDs []string) error {
	existing, err := s.FavoriteTracks(ctx)
	if err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(trackIDs))
	for _, id := range trackIDs {
		keep[id] = struct{}{}
	}

	for _, track := range existing {
		if _, ok := keep[track.ID]; ok {
			continue
		}
		endpoint := fmt.Sprintf("/users/%d/favorites/tracks/%s", s.userID, track.ID)
		if err := s.doRequest(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
			return fmt.Errorf("failed to unfavorite track %s: %w", track.ID, err)
		}
	}

	have := make(map[string]struct{}, len(existing))
	for _, track := range existing {
		have[track.ID] = struct{}{}
	}

	var missing []string
	for _, id := range trackIDs {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return s.AddFavorites(ctx, missing)
}

// indexRange formats "0,1,...,n-1" for bulk item deletion.
func indexRange(n int) string {
	indices := make([]string, n)
	for i := range indices {
		indices[i] = fmt.Sprintf("%d", i)
	}
	return strings.Join(indices, ",")
}

func (t *TidalTrack) toCatalogTrack() models.CatalogTrack {
	track := models.CatalogTrack{
		ID:        fmt.Sprintf("%d", t.ID),
		Name:      t.Title,
		Version:   t.Version,
		Duration:  t.Duration,
		ISRC:      t.ISRC,
		Available: t.StreamReady && t.AllowStreaming,
	}
	for _, artist := range t.Artists {
		track.Artists = append(track.Artists, artist.Name)
	}
	return track
}
