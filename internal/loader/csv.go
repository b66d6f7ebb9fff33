// Package loader reads decoded CAN dump files. It is a thin collaborator:
// the core only sees ordered binary-string payloads per identifier.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/busforge/busforge/pkg/types"
)

// column names expected in the dump header; an unnamed leading index
// column is tolerated.
const (
	colTimestamp = "Timestamp"
	colID        = "ID"
	colDLC       = "DLC"
	colData      = "Data"
)

// LoadCSV reads a CAN dump CSV (Timestamp, ID, DLC, Data with a
// hex-encoded payload) and returns the records in file order, which is
// arrival order.
func LoadCSV(path string) ([]types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads CAN dump CSV content from r.
func Parse(r io.Reader) ([]types.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read dump header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{colTimestamp, colID, colDLC, colData} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("dump header missing column %q", name)
		}
	}

	var records []types.Record
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dump row: %w", err)
		}
		line++

		ts, err := strconv.ParseFloat(row[cols[colTimestamp]], 64)
		if err != nil {
			return nil, fmt.Errorf("dump line %d: bad timestamp: %w", line, err)
		}
		dlc, err := strconv.Atoi(row[cols[colDLC]])
		if err != nil {
			return nil, fmt.Errorf("dump line %d: bad DLC: %w", line, err)
		}
		bits, err := decodePayload(row[cols[colData]], dlc)
		if err != nil {
			return nil, fmt.Errorf("dump line %d: %w", line, err)
		}

		records = append(records, types.Record{
			Timestamp: ts,
			ID:        row[cols[colID]],
			DLC:       dlc,
			Bits:      bits,
		})
	}
	return records, nil
}

// BitsForID filters the records of one identifier, preserving order,
// and returns their binary-string payloads.
func BitsForID(records []types.Record, id string) []string {
	var bits []string
	for _, rec := range records {
		if rec.ID == id {
			bits = append(bits, rec.Bits)
		}
	}
	return bits
}

// decodePayload turns a hex payload ("05 21 68 09" or "05216809") into
// a DLC*8 character binary string.
func decodePayload(data string, dlc int) (string, error) {
	hexStr := strings.ReplaceAll(strings.TrimSpace(data), " ", "")
	if len(hexStr) != dlc*2 {
		return "", fmt.Errorf("payload %q has %d hex digits, DLC %d needs %d",
			data, len(hexStr), dlc, dlc*2)
	}

	var b strings.Builder
	b.Grow(dlc * 8)
	for i := 0; i < len(hexStr); i++ {
		nibble, err := strconv.ParseUint(hexStr[i:i+1], 16, 8)
		if err != nil {
			return "", fmt.Errorf("payload %q: bad hex digit %q", data, hexStr[i])
		}
		for bit := 3; bit >= 0; bit-- {
			if nibble&(1<<uint(bit)) != 0 {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	}
	return b.String(), nil
}
