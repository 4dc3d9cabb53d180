// Package metrics stores the engine's flow counters and the session
// validation latency histogram.
//
// A [Registry] is sized once from the root package's metric table. Each
// counter sits in its own cache-line-padded slot, and the histogram keeps
// eight fixed buckets from 5ms up to +Inf, so recording never allocates.
// Names, help text and exposition formats belong to the root package and to
// metrics/export; this package only holds numbers.
package metrics
