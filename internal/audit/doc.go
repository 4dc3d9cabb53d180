// Package audit carries security events from the engine to pluggable sinks.
//
// The engine builds an [Event] for each login, challenge, session and
// registration outcome and hands it to a [Dispatcher]. The dispatcher queues
// events on a bounded channel and delivers them from one goroutine, either
// dropping when the queue is full (counted in Dropped) or blocking the caller
// until there is room. Sinks that buffer, such as the S3 archive, implement
// [Flusher] and are flushed when the dispatcher closes.
//
// Which events exist and what metadata they carry is decided by the caller.
// Events never contain passwords, codes or session tokens.
package audit
