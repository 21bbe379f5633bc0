// Package orderbook implements the per-instrument limit order book and
// its matching algorithm. Each side keeps its price levels in a
// red-black tree and the orders of one level in a FIFO list, which
// gives price-time priority.
//
// An OrderBook is single-writer and is not safe for concurrent use;
// callers serialize access to it (see service.MatchingEngine).
package orderbook
