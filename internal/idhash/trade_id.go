package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"fee-elasticity-lab/internal/domain"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(segment|date_rfc3339|fee_bps|volume|notional|ordinal)
// ordinal separates identical rows within one batch (0 for the first copy).
// Returns the first 32 hex characters.
func ComputeTradeID(t domain.TradeRecord, ordinal int) string {
	hash := sha256.Sum256([]byte(tradeContent(t) + "|" + strconv.Itoa(ordinal)))
	return hex.EncodeToString(hash[:])[:32]
}

// AssignTradeIDs sets ID on every trade that has none. Identical rows get
// increasing ordinals in slice order, so reloading the same batch yields the
// same IDs and a repeated row is kept as a distinct trade.
func AssignTradeIDs(trades []domain.TradeRecord) {
	seen := make(map[string]int, len(trades))
	for i := range trades {
		content := tradeContent(trades[i])
		ordinal := seen[content]
		seen[content] = ordinal + 1
		if trades[i].ID == "" {
			trades[i].ID = ComputeTradeID(trades[i], ordinal)
		}
	}
}

func tradeContent(t domain.TradeRecord) string {
	return strings.Join([]string{
		string(t.Segment),
		t.Date.UTC().Format(time.RFC3339Nano),
		formatFloat(t.FeeBps),
		formatFloat(t.Volume),
		formatFloat(t.Notional),
	}, "|")
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
