// Package server provides HTTP routing, middleware, and handlers for the mixtape web service and the CLI login flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [ChiRouter] implements it on top of chi; [ChiRouter.With] scopes middleware to a group of routes.
//
// # Session Gate
//
// [RequireSession] runs before every protected route. Any failure to resolve an authenticated session
// answers 401 {"error":"Unauthorized"} and the handler never runs, so no upstream call is made.
//
// # API Handlers
//
// [API] exposes the pipeline as JSON endpoints:
//   - GET  /api/me : profile and playlists
//   - POST /api/create-playlist : empty playlist
//   - GET  /api/search-tracks?q= : top 5 tracks
//   - POST /api/match-songs : song names to tracks, in order
//   - POST /api/add-to-playlist : append track uris
//   - POST /api/build-playlist : match, create and populate in one call
//   - POST /api/gemini : song suggestions
//
// Validation errors answer 400 with the reason. Upstream failures answer 500 with a fixed message per route;
// the cause is logged only.
//
// # OAuth
//
// [AuthHandler] runs the browser login (/auth/spotify, /callback, /logout) against the session store.
//
// [OAuthHandler] is the one-shot variant used by the CLI: a temporary server handles a single callback
// and hands the token back through a channel.
package server
