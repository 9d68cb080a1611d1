// Package models defines the domain types shared by the mixtape service, its CLI and its tests.
//
// The package contains three groups of types:
//
// 1. Session state held by the server for one browser session
//   - [Session] : bearer credential plus the minimal Spotify profile
//
// 2. Remote catalogue objects (Spotify shapes reduced to what the pipeline needs)
//   - [Profile] : the authenticated user's Spotify profile
//   - [MatchedTrack] : a canonical track reference resolved from a free text song name
//   - [Collection] : a remote playlist created or listed on behalf of the user
//   - [CollectionRequest] : the input to playlist creation
//
// 3. Conversation transcript entries relayed to the text generation service
//   - [ConversationTurn] : one caller-owned turn, either "user" or "model"
//
// None of these types are persisted; the only long-lived value is [Session], which lives in the in-memory session store.
package models
