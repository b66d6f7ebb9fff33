// Package fieldstore loads precomputed per-identifier field
// classifications. The classification file is JSON keyed by message
// identifier, each entry a list of field records:
//
//	{"0DE": [{"start_bit":0,"length":3,"type":"CONST","category":"LOW_VAR","n_values":1}, ...]}
//
// Building the classification itself is outside this system; the store
// only addresses an existing file.
package fieldstore

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/busforge/busforge/pkg/types"
)

// Store holds the parsed field lists, addressable by identifier.
type Store struct {
	fields map[string][]types.Field
}

// Load reads and parses a classification file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read field classification: %w", err)
	}
	return Parse(data)
}

// Parse parses classification JSON bytes.
func Parse(data []byte) (*Store, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("field classification is not valid JSON")
	}

	store := &Store{fields: make(map[string][]types.Field)}
	var parseErr error

	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		id := key.String()
		var fields []types.Field
		value.ForEach(func(_, entry gjson.Result) bool {
			f, err := parseField(entry)
			if err != nil {
				parseErr = fmt.Errorf("identifier %s: %w", id, err)
				return false
			}
			fields = append(fields, f)
			return true
		})
		if parseErr != nil {
			return false
		}
		store.fields[id] = fields
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return store, nil
}

func parseField(entry gjson.Result) (types.Field, error) {
	ft, err := types.ParseFieldType(entry.Get("type").String())
	if err != nil {
		return types.Field{}, err
	}

	f := types.Field{
		StartBit: int(entry.Get("start_bit").Int()),
		Length:   int(entry.Get("length").Int()),
		Type:     ft,
		NValues:  int(entry.Get("n_values").Int()),
	}

	// CONST fields carry no variability category in the classification
	// output; anything else must name one.
	if cat := entry.Get("category"); cat.Exists() && cat.String() != "" {
		v, err := types.ParseVariability(cat.String())
		if err != nil {
			return types.Field{}, err
		}
		f.Category = v
	} else if ft != types.FieldConst {
		return types.Field{}, fmt.Errorf("field at bit %d has no variability category", f.StartBit)
	}

	if f.StartBit < 0 || f.Length < 0 {
		return types.Field{}, fmt.Errorf("field has negative geometry: start %d, length %d", f.StartBit, f.Length)
	}
	return f, nil
}

// Fields returns the field list for an identifier. The second return is
// false when the identifier has no classification — an expected
// outcome, not an error.
func (s *Store) Fields(id string) ([]types.Field, bool) {
	fields, ok := s.fields[id]
	return fields, ok
}

// IDs returns every classified identifier.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.fields))
	for id := range s.fields {
		ids = append(ids, id)
	}
	return ids
}
