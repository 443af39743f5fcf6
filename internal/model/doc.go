// Package model defines shared data types used across the quote collector.
//
// Conventions:
//   - Timestamps: int64 nanoseconds since Unix epoch (UTC)
//   - Prices and sizes: float64, with absence carried by Float.Valid
//   - Pairs: (exchange, market) as a comparable PairKey
package model
