// Package services defines the [SourceService] and [CatalogService] interfaces for music streaming providers and implements them for Spotify and Tidal.
//
// # Service Interfaces
//
// [SourceService] is the read-only side of a sync: it lists the user's
// playlists and favorites on the source catalog. [CatalogService] is the
// writable side: it searches the target catalog and mutates playlists and
// favorites there.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication. Paginated track listings
// fetch the first page synchronously and the remaining pages in parallel
// under a rate limiter, reassembled in offset order.
//
// # Tidal Implementation
//
// [TidalService] talks to the v1 Tidal API. Every response code is mapped
// into the shared error taxonomy so callers can retry the right failures.
//
// # OAuth Service Extension
//
// The [OAuthService] interface exposes the pieces the local-callback login
// flow needs. Both services implement it.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token expired, reauthorization needed
//   - [shared.ErrRateLimited] : HTTP 429, retryable
//   - [shared.ErrTransient] : 5xx or transport failure, retryable
//   - [shared.ErrAPIRequest] : any other non-2xx response
//   - [shared.ErrPlaylistNotFound] : playlist ID not found
//
// # API Mappings
//
// Both services convert provider JSON into the models package:
//   - Spotify: playlist/saved-track items → [models.SourceTrack] with ISRC from external_ids; null track entries are dropped
//   - Tidal: search, album, and playlist items → [models.CatalogTrack] with availability from streamReady and allowStreaming
package services
