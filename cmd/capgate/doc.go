// Command capgate aligns caption timing with detected speech.
//
// "capgate sync" runs the full pipeline for one track, "capgate batch" runs
// it for many tracks concurrently, and "capgate detect", "capgate normalize"
// and "capgate validate" expose the individual steps for debugging. Failed
// runs print a machine-readable reason code on stderr and exit non-zero.
package main
