// Package subtitles renders gated cues as SRT or WebVTT and reads caption
// files back for validation.
//
// Serialize is pure and rejects empty cue lists and cues without positive
// duration. WriteFile serializes, holds an advisory lock on <path>.lock and
// replaces the target atomically through a temp file, so concurrent batch
// runs pointed at the same output never interleave. ParseSRT and
// ValidateContent accept both SRT and WebVTT timing lines; ValidateContent
// reports issue codes rather than failing so callers can decide severity.
package subtitles
