// Package collector drives the periodic flush: purge events from the source,
// append them to the quote buffer, drain every pair and hand the batches to
// the configured sink.
//
// A single goroutine runs flushes, so flushes never overlap and the rows of a
// pair keep their arrival order.
package collector
