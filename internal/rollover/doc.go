// Package rollover tracks, per exchange-market pair, the UTC day whose staged
// data has not yet been merged into a daily table.
package rollover
