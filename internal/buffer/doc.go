// Package buffer implements the columnar Quote Buffer.
//
// One set of fixed-schema columns is kept per (exchange, market) pair. The
// pair set is fixed at construction. Drain hands the filled columns to the
// caller as a model.Batch and starts the pair over with fresh columns sized
// from the last window's row count.
package buffer
