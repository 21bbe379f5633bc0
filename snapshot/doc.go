// Package snapshot publishes aggregated order book depth to Redis so
// market data readers never touch the matching engine's locks.
package snapshot
