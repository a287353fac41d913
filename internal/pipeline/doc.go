// Package pipeline implements the resumable photo upload pipeline.
//
// A batch of picked images is normalized into tasks, and each task is driven
// sequentially through the ordered stages converting, minting, uploading,
// and finalizing. Failures are isolated per task and converted into retry
// entries that resume at the stage after the last successful one, so a retry
// never repeats a remote call whose side effect already landed. One
// cancellation scope covers a batch; starting a new batch supersedes any
// batch still in flight.
package pipeline
