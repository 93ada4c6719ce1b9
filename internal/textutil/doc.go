// Package textutil provides the text primitives shared by the transcript
// normalizer and the gating summary.
//
// The primary use cases are:
//   - NFC normalization, whitespace word splitting and rune-length counting
//     for per-word timestamp redistribution
//   - Token fingerprints and cosine similarity for measuring how much
//     transcript text survived gating
//
// Word lengths are rune counts over NFC-normalized text, so precomposed and
// decomposed forms of the same word receive the same share of a segment.
package textutil
