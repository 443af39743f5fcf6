// Package feed is the market-data event source.
//
// A Source accepts subscriptions and accumulates quote events from the
// network in an unbounded Queue. The collector pulls everything gathered
// since the previous call with Purge, once per flush interval.
//
// BinanceSource implements Source for Binance spot and USD-M futures using
// the bookTicker stream (best bid/ask only).
package feed
