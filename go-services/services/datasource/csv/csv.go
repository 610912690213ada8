// Package csv loads a time-aligned close-price series out of a local
// timestamp,open,high,low,close,volume file, the same shape the
// strategies package consumes, transcoding UTF-16 exports on the fly.
package csv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type bar struct {
	ts    int64
	close float64
}

// LoadSeries reads path and returns the close price and bar-time vectors,
// time ascending. A UTF-16 BOM (little- or big-endian) at the start of the
// file is transcoded to UTF-8 before parsing; a plain UTF-8/ASCII file is
// read as-is.
func LoadSeries(path string) ([]float64, []time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("csv: open: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	peek, _ := br.Peek(2)

	var reader io.Reader = br
	if len(peek) >= 2 && ((peek[0] == 0xFF && peek[1] == 0xFE) || (peek[0] == 0xFE && peek[1] == 0xFF)) {
		enc := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
		if peek[0] == 0xFE {
			enc = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
		}
		reader = transform.NewReader(br, enc.NewDecoder())
	}

	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var bars []bar
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
		if len(rec) < 5 {
			idx++
			continue
		}
		if idx == 0 && strings.EqualFold(strings.TrimPrefix(rec[0], "\ufeff"), "timestamp") {
			idx++
			continue
		}

		ts, tsErr := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff")), 10, 64)
		close, closeErr := strconv.ParseFloat(strings.TrimSpace(rec[4]), 64)
		if tsErr != nil || closeErr != nil {
			idx++
			continue
		}
		bars = append(bars, bar{ts: ts, close: close})
		idx++
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].ts < bars[j].ts })

	prices := make([]float64, len(bars))
	dates := make([]time.Time, len(bars))
	for i, b := range bars {
		prices[i] = b.close
		dates[i] = time.UnixMilli(b.ts).UTC()
	}
	return prices, dates, nil
}
