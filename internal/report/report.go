// Package report provides run manifest generation for BusForge.
package report

import (
	"encoding/json"
	"time"

	"github.com/busforge/busforge/pkg/types"
)

// EntryKind distinguishes structural from field-level datasets.
type EntryKind string

const (
	KindBaseline   EntryKind = "baseline"
	KindStructural EntryKind = "structural"
	KindField      EntryKind = "field"
)

// Entry describes one generated dataset.
type Entry struct {
	Label     string    `json:"label"`
	Kind      EntryKind `json:"kind"`
	Strategy  string    `json:"strategy,omitempty"` // field datasets only
	File      string    `json:"file"`
	Shape     [3]int    `json:"shape"`    // (N, P, W)
	Distance  int       `json:"distance"` // TLSH distance to baseline, -1 when unavailable
	CreatedAt time.Time `json:"created_at"`
}

// Statistics summarizes a generation run.
type Statistics struct {
	Jobs       int           `json:"jobs"`
	Failures   int           `json:"failures"`
	Discarded  int           `json:"discarded_words"` // tail words lost to windowing
	Duration   time.Duration `json:"duration"`
	DatasetsMB float64       `json:"datasets_mb"`
}

// MarshalJSON renders the duration human-readably alongside the rest.
func (s Statistics) MarshalJSON() ([]byte, error) {
	type Alias Statistics
	return json.Marshal(&struct {
		Alias
		Duration string `json:"duration"`
	}{
		Alias:    Alias(s),
		Duration: s.Duration.String(),
	})
}

// Report is the manifest written next to the generated datasets. The
// evaluation harness consumes it to locate and label every dataset.
type Report struct {
	Tool        string     `json:"tool"`
	Version     string     `json:"version"`
	GeneratedAt time.Time  `json:"generated_at"`
	Source      string     `json:"source"`     // dump file
	Identifier  string     `json:"identifier"` // target message ID
	Seed        int64      `json:"seed"`
	Entries     []Entry    `json:"entries"`
	Stats       Statistics `json:"stats"`
}

// NewReport creates a manifest shell for one run.
func NewReport(version, source, id string, seed int64) *Report {
	return &Report{
		Tool:        "busforge",
		Version:     version,
		GeneratedAt: time.Now().UTC(),
		Source:      source,
		Identifier:  id,
		Seed:        seed,
	}
}

// Add appends a dataset entry.
func (r *Report) Add(e Entry) {
	r.Entries = append(r.Entries, e)
}

// Dataset is the on-disk form of one labeled tensor: every word as a
// bit string, grouped by sequence.
type Dataset struct {
	Label     string     `json:"label"`
	Shape     [3]int     `json:"shape"`
	Sequences [][]string `json:"sequences"`
}

// NewDataset converts a labeled tensor to its on-disk form.
func NewDataset(label string, t types.Tensor) *Dataset {
	n, p, w := t.Shape()
	seqs := make([][]string, n)
	for i, seq := range t {
		rows := make([]string, len(seq))
		for j, word := range seq {
			buf := make([]byte, len(word))
			for k, bit := range word {
				buf[k] = '0' + bit
			}
			rows[j] = string(buf)
		}
		seqs[i] = rows
	}
	return &Dataset{
		Label:     label,
		Shape:     [3]int{n, p, w},
		Sequences: seqs,
	}
}
