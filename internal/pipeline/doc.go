// Package pipeline runs the capgate chain for one audio track: decode the
// audio, load and filter the transcript, split it into word cues, detect
// speech, gate the cues against it and write the subtitle file.
//
// Each step runs through runStage, which tags the context with the stage
// name, opens a trace span, records the stage duration metric and logs
// stage_start, stage_complete and stage_failure events. A finished run logs
// one gating_summary event and, when paths.work_dir is set, persists a JSON
// report under work_dir/reports.
package pipeline
