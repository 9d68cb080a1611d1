// Package services defines the [Service] interface for the music catalog and the [Generator] interface
// for suggestion backends, and implements them for Spotify, Gemini, and Ollama.
//
// # Service Interface
//
// Every [Service] method takes the caller's [oauth2.Token] explicitly. Implementations hold no per-user
// state, so one instance is shared by every session and a credential never leaks between users.
//
// # Spotify Implementation
//
// [SpotifyService] talks to the Web API with a plain [http.Client] and an [oauth2.Config] for the
// authorization code flow. [SpotifyService.AuthURL] always sets show_dialog so users can switch accounts.
//
// # Generators
//
// [GeminiGenerator] replays the transcript as chat history and sends the final user turn.
// [OllamaGenerator] sends the whole transcript as a single non-streaming chat request, mapping the
// model role onto Ollama's assistant role.
//
// # Error Handling
//
// Services return sentinel errors from the shared package, wrapped with context:
//   - [shared.ErrUnauthorized] : missing or empty credential, no request is made
//   - [shared.ErrUpstream] : network failure, non-2xx status, or undecodable body
//   - [shared.ErrValidation] : input rejected before any request
//   - [shared.ErrAuthFailed] : authorization code exchange failed
package services
