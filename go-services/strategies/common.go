// Package strategies holds example external signal generators: ordinary
// floating point indicator code that produces the entries/exits vectors
// engine.Simulate consumes. None of them open, close, or size a position —
// that bookkeeping belongs to the core alone.
package strategies

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV candle. Timestamp is Unix milliseconds, matching the
// millisecond-epoch CSV export the retrieved exchange-ingestion tooling
// produces.
type Bar struct {
	Timestamp int64
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// LoadOHLCVCSV parses a timestamp,open,high,low,close,volume CSV (with or
// without a header row) into time-ascending Bars. Malformed rows are
// skipped rather than failing the whole load, matching the retrieved
// strategies' tolerance for the occasional short or corrupt row in scraped
// exchange data.
func LoadOHLCVCSV(filename string) ([]Bar, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	r.ReuseRecord = false
	r.LazyQuotes = true

	var bars []Bar
	idx := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			idx++
			continue
		}
		if len(rec) < 6 {
			idx++
			continue
		}
		if idx == 0 && (strings.EqualFold(rec[0], "timestamp") || strings.EqualFold(rec[0], "timestamp_ms")) {
			idx++
			continue
		}

		ts, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff")), 10, 64)
		if err != nil {
			idx++
			continue
		}
		o, e1 := decimal.NewFromString(strings.TrimSpace(rec[1]))
		h, e2 := decimal.NewFromString(strings.TrimSpace(rec[2]))
		l, e3 := decimal.NewFromString(strings.TrimSpace(rec[3]))
		c, e4 := decimal.NewFromString(strings.TrimSpace(rec[4]))
		v, e5 := decimal.NewFromString(strings.TrimSpace(rec[5]))
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			idx++
			continue
		}
		if e5 != nil {
			v = decimal.Zero
		}
		bars = append(bars, Bar{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: v})
		idx++
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	return bars, nil
}
