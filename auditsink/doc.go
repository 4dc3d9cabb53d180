// Package auditsink archives chatgate audit events to S3 or any S3-compatible
// object store.
//
// [S3Sink] implements chatgate.AuditSink and chatgate.AuditFlusher, so the
// engine's dispatcher uploads the final partial batch on Close.
package auditsink
