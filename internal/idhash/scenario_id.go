package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"fee-elasticity-lab/internal/domain"
)

// ComputeScenarioID computes a deterministic scenario_id using SHA256.
// Formula: SHA256(index|segment=fee|segment=fee|...) with segments in the given order.
// Returns hex-encoded hash (64 characters).
func ComputeScenarioID(index int, segments []domain.Segment, fees domain.SegmentValues) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(index))
	for _, seg := range segments {
		fmt.Fprintf(&b, "|%s=%s", seg, strconv.FormatFloat(fees[seg], 'g', -1, 64))
	}

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}
