// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Ticks appended per pair and rows written per policy
//   - Files written by kind (direct, staged, daily)
//   - Flush duration and the time of the last completed flush
//   - Write errors by policy
package metrics
