// Package api provides the REST client used for instrument discovery.
//
// Endpoints:
//   - binance:              https://api.binance.com/api/v3/exchangeInfo
//   - binance-usds-futures: https://fapi.binance.com/fapi/v1/exchangeInfo
//
// Listings are returned as symbol.Instrument attribute maps so the symbol
// package can unify them.
package api
