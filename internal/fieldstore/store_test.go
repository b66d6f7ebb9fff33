package fieldstore

import (
	"testing"

	"github.com/busforge/busforge/pkg/types"
)

const sampleClassification = `{
	"0DE": [
		{"start_bit": 0, "length": 7, "type": "CONST", "n_values": 1},
		{"start_bit": 8, "length": 3, "type": "MULTI-VALUE", "category": "MID_VAR", "n_values": 4},
		{"start_bit": 12, "length": 9, "type": "SENSOR", "category": "HIGH_VAR", "n_values": 211}
	],
	"260": [
		{"start_bit": 0, "length": 15, "type": "CONST", "category": "", "n_values": 1}
	]
}`

func TestParseClassification(t *testing.T) {
	store, err := Parse([]byte(sampleClassification))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields, ok := store.Fields("0DE")
	if !ok {
		t.Fatal("identifier 0DE not found")
	}
	if len(fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(fields))
	}

	want := []types.Field{
		{StartBit: 0, Length: 7, Type: types.FieldConst, NValues: 1},
		{StartBit: 8, Length: 3, Type: types.FieldMultiValue, Category: types.MidVar, NValues: 4},
		{StartBit: 12, Length: 9, Type: types.FieldSensor, Category: types.HighVar, NValues: 211},
	}
	for i, f := range want {
		if fields[i] != f {
			t.Errorf("field %d = %+v, want %+v", i, fields[i], f)
		}
	}

	if _, ok := store.Fields("FFF"); ok {
		t.Error("unknown identifier resolved")
	}
	if len(store.IDs()) != 2 {
		t.Errorf("IDs() returned %d entries, want 2", len(store.IDs()))
	}
}

func TestParseRejectsBadClassification(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"0DE": [`},
		{"unknown type", `{"0DE":[{"start_bit":0,"length":3,"type":"FLOAT"}]}`},
		{"missing category", `{"0DE":[{"start_bit":0,"length":3,"type":"SENSOR"}]}`},
		{"unknown category", `{"0DE":[{"start_bit":0,"length":3,"type":"SENSOR","category":"NO_VAR"}]}`},
		{"negative geometry", `{"0DE":[{"start_bit":-1,"length":3,"type":"CONST"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.data)); err == nil {
				t.Error("bad classification accepted")
			}
		})
	}
}
