// Package async runs one-shot computations off the calling goroutine.
//
// A Task wraps a single unit of work that produces a value of type T. The work
// is started once with Compute, reports fractional progress through a Progress
// handle, and yields its result through Get, which may be called any number of
// times and always returns the same value.
//
// # Progress
//
// Progress values lie in [0,1]. A negative value is the Indeterminate marker,
// meaning "busy, no estimate". Before the first report a task reports 0; once
// the computation returns it reports 1 unless the owner forces Indeterminate
// with SetProgress (for example while a follow-up phase that the task does not
// track is still running).
//
// # Failures
//
// An error returned by the computation is handed back by Get. A panic inside
// the computation is recovered and returned from Get as a *PanicError, so a
// failing computation never brings down the process and never goes unnoticed.
//
// # Cancellation
//
// Tasks cannot be cancelled. A launched computation always runs to completion.
package async
