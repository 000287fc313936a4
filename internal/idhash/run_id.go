package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"fee-elasticity-lab/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(params|trade_id|trade_id|...) with trade IDs sorted, so the
// ID covers every parameter in params and the exact trade history regardless
// of row order. Trades without an ID are hashed as AssignTradeIDs would name them.
// Returns the first 16 hex characters; runs with identical inputs share an ID.
func ComputeRunID(params string, trades []domain.TradeRecord) string {
	rows := make([]domain.TradeRecord, len(trades))
	copy(rows, trades)
	AssignTradeIDs(rows)

	ids := make([]string, len(rows))
	for i, t := range rows {
		ids[i] = t.ID
	}
	sort.Strings(ids)

	h := sha256.New()
	h.Write([]byte(params))
	for _, id := range ids {
		h.Write([]byte{'|'})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
