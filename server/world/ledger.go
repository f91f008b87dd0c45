package world

import "github.com/orchardguard/tractor/server/world/stream"

// Ledger records realised chunks so that a later run with the same seed can
// confirm it produced identical geometry.
type Ledger interface {
	// RecordChunk stores the digest of col realised under seed. It must not
	// block the caller for long.
	RecordChunk(seed int64, col *stream.Column)
	// Close flushes any pending records.
	Close() error
}

// NopLedger is a Ledger that discards every record.
type NopLedger struct{}

func (NopLedger) RecordChunk(int64, *stream.Column) {}
func (NopLedger) Close() error                      { return nil }
