// Package jobstore persists the per-job status record that the HTTP front
// end polls and the worker process owns.
//
// Each job gets a private directory under the configured data dir holding
// the status record, the worker log, and every pipeline artifact. The record
// is written with temp-file-then-rename semantics so the single writer (the
// worker, or the daemon once the worker is confirmed dead) never exposes a
// half-written document to readers. Unknown ids read back as a default
// queued record; unparsable records read back with the sentinel "error"
// status. Transitions are monotonic along the pipeline order, with done,
// failed, and cancelled absorbing.
package jobstore
