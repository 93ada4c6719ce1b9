// Package gate reconciles transcript cue timing with detected speech.
//
// Apply keeps only cues that touch a speech segment, snaps them to the padded
// segment bounds, enforces a minimum on-screen duration and merges cues that
// nearly touch. It never reads global state: every window comes in through
// Params, so the same inputs always produce the same cues.
package gate
