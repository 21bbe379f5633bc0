// Package service is the matching engine: the only write entry point
// into the order books.
//
// It routes requests to per-symbol books, validates them, issues
// identifiers, journals accepted commands and hands every resulting
// event to the configured sink. Transports such as gRPC sit on top of
// it and never touch a book directly.
package service
