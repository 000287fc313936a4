package domain

import "time"

// TradeRecord is one historical observation for a segment.
// Several records may share a segment and date. Loaded once and never
// mutated; the loader guarantees Volume > 0, Notional > 0 and FeeBps >= 0.
type TradeRecord struct {
	ID       string // content-derived identity; empty until assigned on load
	Segment  Segment
	Date     time.Time
	FeeBps   float64 // fee in basis points (integer-like)
	Volume   float64
	Notional float64 // validated only, not used by calibration
}

// FilterBySegment returns the trades for seg, preserving input order.
func FilterBySegment(trades []TradeRecord, seg Segment) []TradeRecord {
	var out []TradeRecord
	for _, t := range trades {
		if t.Segment == seg {
			out = append(out, t)
		}
	}
	return out
}
