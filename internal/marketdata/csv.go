package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"niftybacktest/internal/models"
)

// csvTimeLayouts are tried in order when parsing the timestamp column.
var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// LoadCandlesCSV reads a candle series from a CSV file with a header row of
// timestamp,open,high,low,close[,volume]. Returns the parsed series sorted by
// time.
func LoadCandlesCSV(path string) ([]models.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening candle csv: %w", err)
	}
	defer f.Close()
	return ReadCandlesCSV(f)
}

// ReadCandlesCSV parses candle rows from r. The first row is treated as a
// header and skipped.
func ReadCandlesCSV(r io.Reader) ([]models.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var out []models.Candle
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading candle csv: %w", err)
		}
		line++
		if line == 1 {
			continue
		}
		if len(record) < 5 {
			return nil, fmt.Errorf("candle csv line %d: expected at least 5 columns, got %d", line, len(record))
		}

		ts, err := parseCSVTime(record[0])
		if err != nil {
			return nil, fmt.Errorf("candle csv line %d: %w", line, err)
		}
		c := models.Candle{Timestamp: ts}
		for i, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close} {
			v, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("candle csv line %d column %d: %w", line, i+2, err)
			}
			*dst = v
		}
		if len(record) > 5 && record[5] != "" {
			vol, err := strconv.ParseInt(record[5], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("candle csv line %d volume: %w", line, err)
			}
			c.Volume = vol
		}
		out = append(out, c)
	}

	models.SortCandles(out)
	return out, nil
}

// NewCSVProvider loads the CSV at path and serves it for symbol through an
// in-memory provider.
func NewCSVProvider(symbol, path string) (*MemoryProvider, error) {
	candles, err := LoadCandlesCSV(path)
	if err != nil {
		return nil, err
	}
	p := NewMemoryProvider()
	p.AddCandles(symbol, candles)
	return p, nil
}

func parseCSVTime(s string) (time.Time, error) {
	for _, layout := range csvTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
