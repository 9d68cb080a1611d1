// Package tasks orchestrates the playlist pipeline on behalf of one authenticated session.
//
// # Core Operations
//
//  1. [SuggestionProxy.Suggest] : conversation → suggested songs
//     - Prepends [InstructionPrefix] to the first user turn (once)
//     - Strips markdown emphasis from the reply
//     - [ParseSuggestions] splits the reply into candidate names
//
//  2. [Matcher.Match] : candidate names → matched tracks
//     - One top-1 search per candidate, strictly in order
//     - Unmatched names are dropped, any search error fails the batch
//
//  3. [Assembler] : matched tracks → playlist
//     - [Assembler.Create] then [Assembler.Populate]
//     - [Assembler.Assemble] composes both under a [PopulateFailurePolicy]
//
// # Progress Reporting
//
// [Matcher] and [Assembler] accept an optional channel through WithProgress.
// Updates are sent with select/default so a slow reader never blocks the pipeline.
//
// # Errors
//
// A session without a credential yields [shared.ErrUnauthorized] before any remote call.
// Remote failures wrap [shared.ErrUpstream]; bad input wraps [shared.ErrValidation].
// Nothing is retried.
package tasks
