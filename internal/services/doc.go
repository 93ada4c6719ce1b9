// Package services defines shared utilities consumed by the caption pipeline
// stages.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and track labels for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper and PipelineError type that
//     translate failures into machine-readable reason codes.
//
// Use these helpers when wiring new stage logic so failure classification stays
// uniform across the pipeline.
package services
