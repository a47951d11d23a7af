// Package workflow runs a redaction batch over the queue.
//
// A Runner freezes the queue, validates the export layout, and then walks
// every entry that is not yet done in creation order. For each entry it
// copies the source verbatim to the untouched path and hands the redacted
// output to a Processor: PipelineProcessor drives decode, detect, redact
// and encode in-process, while CommandProcessor delegates a whole video to an
// external command. Progress is reported through a ProgressFunc; the runner
// never writes to the terminal.
//
// Cancellation is cooperative. The caller cancels the context and the runner
// stops before the next video or frame. A video cut short still has its
// encoder finalized and is recorded as partial.
package workflow
