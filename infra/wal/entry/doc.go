// Package entry is the request journal: an append-only, CRC-framed,
// segmented log of every command the matching engine accepted.
//
// The journal is an audit trail. It is read back for inspection
// (see cmd/journaldump) and is never replayed into an order book.
package entry
