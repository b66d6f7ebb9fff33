// BusForge - CAN bus anomaly sequence generator
// Synthesizes structural and field-level anomalies from real bus
// traffic for anomaly-detection evaluation.

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/busforge/busforge/internal/config"
	"github.com/busforge/busforge/internal/field"
	"github.com/busforge/busforge/internal/fieldstore"
	"github.com/busforge/busforge/internal/loader"
	"github.com/busforge/busforge/internal/logging"
	"github.com/busforge/busforge/internal/report"
	"github.com/busforge/busforge/internal/runner"
	"github.com/busforge/busforge/internal/sequence"
	"github.com/busforge/busforge/internal/ui"
	"github.com/busforge/busforge/internal/web"
	"github.com/busforge/busforge/pkg/types"
)

var (
	version = "0.1.0-dev"

	// CLI flags
	configFile string
	dumpFile   string
	fieldsFile string
	targetID   string
	outputDir  string
	seed       int64
	workers    int
	enableTUI  bool
	serveAfter bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "busforge",
		Short: "BusForge - CAN bus anomaly sequence generator",
		Long: `BusForge reshapes real CAN bus traffic into fixed-duration word
sequences and synthesizes labeled anomalous variants from them:

  - Structural anomalies: interleave, discontinuity, reverse, drop
  - Field anomalies: max, min, random constant, random value, replay

The generated datasets feed anomaly-detection evaluation; BusForge
itself detects nothing.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to generation profile (YAML)")
	rootCmd.PersistentFlags().StringVarP(&dumpFile, "dump", "d", "", "CAN dump CSV (overrides profile)")
	rootCmd.PersistentFlags().StringVarP(&fieldsFile, "fields", "f", "", "Field classification JSON (overrides profile)")
	rootCmd.PersistentFlags().StringVarP(&targetID, "id", "i", "", "Target message identifier (overrides profile)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "out", "o", "", "Output directory (overrides profile)")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesize anomalous datasets from a dump",
		RunE:  runGenerate,
	}
	generateCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time-seeded)")
	generateCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker pool size (overrides profile)")
	generateCmd.Flags().BoolVar(&enableTUI, "tui", false, "Show the live progress dashboard")
	generateCmd.Flags().BoolVar(&serveAfter, "serve", false, "Serve the output dir after generating")
	rootCmd.AddCommand(generateCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize one identifier's traffic and fields",
		RunE:  runInspect,
	}
	rootCmd.AddCommand(inspectCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a generated output directory",
		RunE:  runServe,
	}
	rootCmd.AddCommand(serveCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("BusForge version %s\n", version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers CLI overrides on top of the profile. requireDataset
// enforces the input flags commands like serve do not need.
func loadConfig(requireDataset bool) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if dumpFile != "" {
		cfg.Dataset.Dump = dumpFile
	}
	if fieldsFile != "" {
		cfg.Dataset.Fields = fieldsFile
	}
	if targetID != "" {
		cfg.Dataset.ID = targetID
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if seed != 0 {
		cfg.Engine.Seed = seed
	}
	if workers > 0 {
		cfg.Engine.Workers = workers
	}

	if requireDataset {
		if cfg.Dataset.Dump == "" {
			return nil, fmt.Errorf("no dump file: set --dump or dataset.dump in the profile")
		}
		if cfg.Dataset.ID == "" {
			return nil, fmt.Errorf("no target identifier: set --id or dataset.id in the profile")
		}
	}
	return cfg, cfg.Validate()
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.Output.LogDir); err != nil {
		return err
	}

	r := runner.New(cfg, version)

	var server *web.Server
	if serveAfter {
		server = web.NewServer(cfg.Output.Dir, cfg.Server.RPS)
	}

	type result struct {
		rep *report.Report
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		rep, err := r.Run()
		resCh <- result{rep, err}
	}()

	if enableTUI {
		prog := tea.NewProgram(ui.NewDashboard())
		go func() {
			for e := range r.Events() {
				prog.Send(ui.ProgressMsg(e))
				if server != nil {
					server.Publish(e)
				}
			}
			prog.Send(ui.DoneMsg{})
		}()
		if _, err := prog.Run(); err != nil {
			return err
		}
	} else {
		for e := range r.Events() {
			if server != nil {
				server.Publish(e)
			}
			if e.Err != nil {
				log.Printf("[%d/%d] %s failed: %v", e.Done, e.Total, e.Label, e.Err)
			} else {
				log.Printf("[%d/%d] %s done", e.Done, e.Total, e.Label)
			}
		}
	}

	res := <-resCh
	if res.err != nil {
		return res.err
	}
	fmt.Print(ui.RenderSummary(res.rep))

	if server != nil {
		return listen(server, cfg.Server.Listen)
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	records, err := loader.LoadCSV(cfg.Dataset.Dump)
	if err != nil {
		return err
	}
	bits := loader.BitsForID(records, cfg.Dataset.ID)
	if len(bits) == 0 {
		return fmt.Errorf("no traffic for identifier %q", cfg.Dataset.ID)
	}

	tensor, discarded, err := sequence.Reshape(bits, cfg.Sequence.SamplingPeriod, cfg.Sequence.Duration)
	if err != nil {
		return err
	}
	n, p, w := tensor.Shape()
	fmt.Printf("identifier %s: %d words, tensor (%d, %d, %d), %d discarded\n",
		cfg.Dataset.ID, len(bits), n, p, w, discarded)

	if n > 0 {
		mask := field.FindConstantBits(tensor[0][0], tensor[0], w)
		constant := 0
		for _, c := range mask {
			if c {
				constant++
			}
		}
		fmt.Printf("first window: %d of %d bits constant\n", constant, w)
	}

	if cfg.Dataset.Fields == "" {
		return nil
	}
	store, err := fieldstore.Load(cfg.Dataset.Fields)
	if err != nil {
		return err
	}
	fields, ok := store.Fields(cfg.Dataset.ID)
	if !ok {
		fmt.Printf("no field classification for %s\n", cfg.Dataset.ID)
		return nil
	}
	for _, f := range fields {
		category := f.Category.String()
		if f.Type == types.FieldConst {
			category = "-"
		}
		fmt.Printf("  bits [%d,%d]  %-11s %-8s n_values=%d\n",
			f.StartBit, f.StartBit+f.Length, f.Type, category, f.NValues)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	server := web.NewServer(cfg.Output.Dir, cfg.Server.RPS)
	return listen(server, cfg.Server.Listen)
}

// listen serves until SIGINT/SIGTERM.
func listen(server *web.Server, addr string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(addr)
	}()
	log.Printf("serving datasets on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-sigChan:
		log.Println("shutting down")
		return server.Shutdown()
	}
}
