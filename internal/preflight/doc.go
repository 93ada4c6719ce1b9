// Package preflight provides readiness checks for the filesystem paths,
// detector tiers and external tools capgate depends on.
//
// These checks run in two contexts:
//   - "capgate sync" and "capgate batch" call RunAll before loading audio so
//     an unwritable work directory fails fast instead of after detection.
//   - "capgate status" renders every check, including the optional tools
//     reported by CheckSystemDeps and the per-tier readiness from CheckTiers.
package preflight
