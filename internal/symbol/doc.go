// Package symbol maps exchange-native instruments to canonical
// BASE-QUOTE-KIND symbols and discovers the markets to subscribe to.
//
// Each exchange registers one Transform in a static table. Looking up an
// exchange that is not in the table is a configuration error; a Transform
// that declines an instrument simply excludes it.
package symbol
