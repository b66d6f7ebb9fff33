// Package runner executes a generation profile: it loads traffic,
// reshapes it, runs every configured anomaly job over a worker pool,
// writes the datasets, and assembles the run manifest.
package runner

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/busforge/busforge/internal/anomaly"
	"github.com/busforge/busforge/internal/config"
	"github.com/busforge/busforge/internal/field"
	"github.com/busforge/busforge/internal/fieldstore"
	"github.com/busforge/busforge/internal/loader"
	"github.com/busforge/busforge/internal/report"
	"github.com/busforge/busforge/internal/sequence"
	"github.com/busforge/busforge/pkg/types"
)

// Event is one progress notification from a running batch.
type Event struct {
	Label string
	Kind  report.EntryKind
	Err   error
	Done  int
	Total int
}

// job is one independent anomaly synthesis unit. Each job owns its own
// random source, seeded deterministically before submission, so pool
// scheduling cannot change any result. Donor-index rotation lives
// inside the transform, which runs sequentially within its job.
type job struct {
	label    string
	kind     report.EntryKind
	strategy string
	seed     int64
	run      func(rng *rand.Rand) (types.Tensor, string, error)
}

// Runner drives one generation run.
type Runner struct {
	cfg     *config.Config
	version string

	events    chan Event
	completed atomic.Int64
	failed    atomic.Int64
}

// New creates a runner for a validated profile.
func New(cfg *config.Config, version string) *Runner {
	return &Runner{
		cfg:     cfg,
		version: version,
		events:  make(chan Event, 64),
	}
}

// Events returns the progress channel. It is closed when Run finishes.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// Run executes the profile and returns the manifest. The manifest and
// every dataset are also written under the configured output dir.
func (r *Runner) Run() (*report.Report, error) {
	defer close(r.events)
	started := time.Now()

	cfg := r.cfg
	seed := cfg.Engine.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	master := rand.New(rand.NewSource(seed))

	records, err := loader.LoadCSV(cfg.Dataset.Dump)
	if err != nil {
		return nil, err
	}
	bits := loader.BitsForID(records, cfg.Dataset.ID)
	if len(bits) == 0 {
		return nil, fmt.Errorf("runner: no traffic for identifier %q in %s", cfg.Dataset.ID, cfg.Dataset.Dump)
	}

	baseline, discarded, err := sequence.Reshape(bits, cfg.Sequence.SamplingPeriod, cfg.Sequence.Duration)
	if err != nil {
		return nil, err
	}
	if baseline.N() == 0 {
		return nil, fmt.Errorf("runner: traffic too short for even one %gs window", cfg.Sequence.Duration)
	}

	jobs, err := r.buildJobs(baseline, master)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	rep := report.NewReport(r.version, cfg.Dataset.Dump, cfg.Dataset.ID, seed)
	gen := &report.JSONGenerator{Indent: cfg.Output.Indent}

	// Baseline is written alongside the anomalies so the harness has the
	// unmodified traffic under the same roof.
	n, p, w := baseline.Shape()
	baseFile, err := r.writeDataset(gen, report.NewDataset("baseline", baseline))
	if err != nil {
		return nil, err
	}
	rep.Add(report.Entry{
		Label:     "baseline",
		Kind:      report.KindBaseline,
		File:      baseFile,
		Shape:     [3]int{n, p, w},
		Distance:  0,
		CreatedAt: time.Now().UTC(),
	})

	pool, err := ants.NewPool(cfg.Engine.Workers, ants.WithPreAlloc(true))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	total := len(jobs)

	for _, j := range jobs {
		j := j
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			entry, err := r.runJob(j, baseline, gen)
			if err != nil {
				r.failed.Add(1)
				log.Printf("job %s failed: %v", j.label, err)
			} else {
				mu.Lock()
				rep.Add(entry)
				mu.Unlock()
			}
			done := int(r.completed.Add(1))
			r.emit(Event{Label: j.label, Kind: j.kind, Err: err, Done: done, Total: total})
		}); err != nil {
			wg.Done()
			return nil, fmt.Errorf("submit job %s: %w", j.label, err)
		}
	}
	wg.Wait()

	rep.Stats = report.Statistics{
		Jobs:      total,
		Failures:  int(r.failed.Load()),
		Discarded: discarded,
		Duration:  time.Since(started),
	}
	rep.Stats.DatasetsMB = r.outputSize(rep)

	manifest, err := os.Create(filepath.Join(cfg.Output.Dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("create manifest: %w", err)
	}
	defer manifest.Close()
	if err := gen.Generate(rep, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return rep, nil
}

// buildJobs assembles the job list for the profile. Everything random
// is decided or seeded here, sequentially from the master source, so
// the run is reproducible and independent of pool scheduling.
func (r *Runner) buildJobs(baseline types.Tensor, master *rand.Rand) ([]job, error) {
	cfg := r.cfg
	var jobs []job

	for _, name := range cfg.Anomalies.Structural {
		name := name
		j := job{label: name, kind: report.KindStructural, seed: master.Int63()}
		switch name {
		case "interleave":
			j.run = func(*rand.Rand) (types.Tensor, string, error) { return anomaly.Interleave(baseline) }
		case "discontinuity":
			j.run = func(*rand.Rand) (types.Tensor, string, error) { return anomaly.Discontinuity(baseline) }
		case "reverse":
			j.run = func(*rand.Rand) (types.Tensor, string, error) { return anomaly.Reverse(baseline) }
		case "drop":
			j.run = func(*rand.Rand) (types.Tensor, string, error) {
				return anomaly.Drop(baseline, cfg.Anomalies.DropLength)
			}
		default:
			return nil, fmt.Errorf("unknown structural anomaly %q", name)
		}
		jobs = append(jobs, j)
	}

	if len(cfg.Anomalies.Field.Strategies) > 0 {
		store, err := fieldstore.Load(cfg.Dataset.Fields)
		if err != nil {
			return nil, err
		}
		fields, ok := store.Fields(cfg.Dataset.ID)
		if !ok {
			return nil, fmt.Errorf("no field classification for identifier %q", cfg.Dataset.ID)
		}

		target, ok := field.TargetField(fields, cfg.FieldCategory(), master)
		if !ok {
			// Expected absence: some identifiers simply have no field of
			// the requested variability. Field jobs are skipped, the
			// structural ones still run.
			log.Printf("no %s fields for identifier %s, skipping field anomalies",
				cfg.FieldCategory(), cfg.Dataset.ID)
		} else {
			for _, name := range cfg.Anomalies.Field.Strategies {
				kind, err := types.ParseStrategyKind(name)
				if err != nil {
					return nil, err
				}
				words := cfg.Anomalies.Field.Words
				verbose := cfg.Anomalies.Field.Verbose
				jobs = append(jobs, job{
					label:    name,
					kind:     report.KindField,
					strategy: name,
					seed:     master.Int63(),
					run: func(rng *rand.Rand) (types.Tensor, string, error) {
						return anomaly.FieldAnomaly(baseline, target, words, anomaly.NewStrategy(kind, rng), rng, verbose)
					},
				})
			}
		}
	}
	return jobs, nil
}

// runJob executes one job, writes its dataset, and builds its entry.
func (r *Runner) runJob(j job, baseline types.Tensor, gen *report.JSONGenerator) (report.Entry, error) {
	rng := rand.New(rand.NewSource(j.seed))
	t, label, err := j.run(rng)
	if err != nil {
		return report.Entry{}, err
	}

	dist, err := report.Distance(baseline, t)
	if err != nil {
		dist = -1 // stream too small for TLSH; not a job failure
	}

	file, err := r.writeDataset(gen, report.NewDataset(label, t))
	if err != nil {
		return report.Entry{}, err
	}

	n, p, w := t.Shape()
	return report.Entry{
		Label:     label,
		Kind:      j.kind,
		Strategy:  j.strategy,
		File:      file,
		Shape:     [3]int{n, p, w},
		Distance:  dist,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// writeDataset writes one dataset file and returns its base name.
func (r *Runner) writeDataset(gen *report.JSONGenerator, d *report.Dataset) (string, error) {
	name := fmt.Sprintf("%s.%s", d.Label, gen.Extension())
	f, err := os.Create(filepath.Join(r.cfg.Output.Dir, name))
	if err != nil {
		return "", fmt.Errorf("create dataset %s: %w", name, err)
	}
	defer f.Close()
	if err := gen.GenerateDataset(d, f); err != nil {
		return "", fmt.Errorf("write dataset %s: %w", name, err)
	}
	return name, nil
}

func (r *Runner) outputSize(rep *report.Report) float64 {
	var total int64
	for _, e := range rep.Entries {
		if info, err := os.Stat(filepath.Join(r.cfg.Output.Dir, e.File)); err == nil {
			total += info.Size()
		}
	}
	return float64(total) / 1e6
}

func (r *Runner) emit(e Event) {
	select {
	case r.events <- e:
	default: // slow consumer, progress is best-effort
	}
}
