// Package dataload reads and writes trade history and fee menus as CSV.
package dataload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fee-elasticity-lab/internal/domain"
)

// Loader errors
var (
	ErrMissingColumns = errors.New("missing required columns")
	ErrBadValue       = errors.New("bad value")
)

// DateLayout is the date format of the trades file.
const DateLayout = "2006-01-02"

// TradeColumns is the header written by WriteTrades. On read, "segment" is
// accepted in place of "cluster".
var TradeColumns = []string{"date", "cluster", "notional", "volume", "fee_bps"}

// TradeSet is the result of loading a trades file.
type TradeSet struct {
	Trades  []domain.TradeRecord // in file order
	Dropped int                  // rows removed by the sanity filter
}

// LoadTradesFile opens path and calls LoadTrades.
func LoadTradesFile(path string) (*TradeSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadTrades(f)
}

// LoadTrades parses a trades CSV.
//
// Unparseable values fail the whole load. Rows that parse but violate
// volume > 0, notional > 0 or fee_bps >= 0 are dropped and counted.
func LoadTrades(r io.Reader) (*TradeSet, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header, []string{"date", "cluster", "notional", "volume", "fee_bps"}, map[string]string{"segment": "cluster"})
	if err != nil {
		return nil, err
	}

	set := &TradeSet{}
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

		t, err := parseTrade(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if t.Volume <= 0 || t.Notional <= 0 || t.FeeBps < 0 {
			set.Dropped++
			continue
		}
		set.Trades = append(set.Trades, t)
	}
	return set, nil
}

func parseTrade(rec []string, idx map[string]int) (domain.TradeRecord, error) {
	date, err := parseDate(rec[idx["date"]])
	if err != nil {
		return domain.TradeRecord{}, err
	}
	seg := strings.TrimSpace(rec[idx["cluster"]])
	if seg == "" {
		return domain.TradeRecord{}, fmt.Errorf("%w: empty cluster", ErrBadValue)
	}
	notional, err := parseNumber("notional", rec[idx["notional"]])
	if err != nil {
		return domain.TradeRecord{}, err
	}
	volume, err := parseNumber("volume", rec[idx["volume"]])
	if err != nil {
		return domain.TradeRecord{}, err
	}
	fee, err := parseNumber("fee_bps", rec[idx["fee_bps"]])
	if err != nil {
		return domain.TradeRecord{}, err
	}

	return domain.TradeRecord{
		Segment:  domain.Segment(seg),
		Date:     date,
		FeeBps:   fee.InexactFloat64(),
		Volume:   volume.InexactFloat64(),
		Notional: notional.InexactFloat64(),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrBadValue, s)
	}
	return t.UTC(), nil
}

func parseNumber(col, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %q", ErrBadValue, col, s)
	}
	return d, nil
}

// columnIndex maps required column names to positions. aliases maps an
// alternative header name to the required name it stands for.
func columnIndex(header, required []string, aliases map[string]string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}

	var missing []string
	for _, c := range required {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return idx, nil
}

// WriteTrades writes trades in the format LoadTrades reads.
// Volume and notional are rounded to 4 decimals.
func WriteTrades(w io.Writer, trades []domain.TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TradeColumns); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			t.Date.Format(DateLayout),
			string(t.Segment),
			decimal.NewFromFloat(t.Notional).Round(4).String(),
			decimal.NewFromFloat(t.Volume).Round(4).String(),
			decimal.NewFromFloat(t.FeeBps).String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
