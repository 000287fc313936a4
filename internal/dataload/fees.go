package dataload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"fee-elasticity-lab/internal/domain"
)

// FeeMenu lists the offered fees (bps) per segment, sorted ASC and unique.
type FeeMenu map[domain.Segment][]float64

// Grid returns the union of all offered fees, sorted ASC.
func (m FeeMenu) Grid() []float64 {
	set := make(map[float64]struct{})
	for _, fees := range m {
		for _, f := range fees {
			set[f] = struct{}{}
		}
	}
	out := make([]float64, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Float64s(out)
	return out
}

// LoadFeeMenuFile opens path and calls LoadFeeMenu.
func LoadFeeMenuFile(path string) (FeeMenu, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadFeeMenu(f)
}

// LoadFeeMenu parses a fee menu CSV with columns cluster, fee_bps.
// Fees are truncated to whole bps; negative fees are rejected.
func LoadFeeMenu(r io.Reader) (FeeMenu, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header, []string{"cluster", "fee_bps"}, map[string]string{"segment": "cluster"})
	if err != nil {
		return nil, err
	}

	menu := make(FeeMenu)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		seg := strings.TrimSpace(rec[idx["cluster"]])
		if seg == "" {
			return nil, fmt.Errorf("line %d: %w: empty cluster", line, ErrBadValue)
		}
		d, err := parseNumber("fee_bps", rec[idx["fee_bps"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("line %d: %w: negative fee_bps %s", line, ErrBadValue, d)
		}
		menu[domain.Segment(seg)] = append(menu[domain.Segment(seg)], float64(d.IntPart()))
	}

	for seg, fees := range menu {
		sort.Float64s(fees)
		menu[seg] = dedupe(fees)
	}
	return menu, nil
}

func dedupe(sorted []float64) []float64 {
	out := sorted[:0]
	for i, f := range sorted {
		if i == 0 || f != sorted[i-1] {
			out = append(out, f)
		}
	}
	return out
}

// WriteFeeMenu writes one row per (segment, fee), segments in the given order.
func WriteFeeMenu(w io.Writer, segments []domain.Segment, menu FeeMenu) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"cluster", "fee_bps"}); err != nil {
		return err
	}
	for _, seg := range segments {
		for _, f := range menu[seg] {
			if err := cw.Write([]string{string(seg), decimal.NewFromFloat(f).String()}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
