// Command stemsep separates a two-instrument recording into stems and
// writes them alongside a JSON analysis report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cwbudde/algo-stems/audioio"
	"github.com/cwbudde/algo-stems/dsp/filter/notch"
	"github.com/cwbudde/algo-stems/separate"
)

// Accepted cutoff range at the command line. The pipeline still validates
// the band against the input's Nyquist frequency.
const (
	minCutoffHz = 10.0
	maxCutoffHz = 20000.0
)

// CLI defines the command-line interface.
type CLI struct {
	Input string `arg:"" help:"Audio file to separate (WAV)." type:"existingfile"`

	Method  string        `help:"Separation method." default:"hpss" enum:"hpss,hpss-filter,neural"`
	Low     float64       `help:"Band-stop low cutoff in Hz (hpss-filter)." default:"10"`
	High    float64       `help:"Band-stop high cutoff in Hz (hpss-filter)." default:"4000"`
	Order   int           `help:"Band-stop filter order (hpss-filter)." default:"4"`
	Model   string        `help:"Neural engine model name (neural)."`
	Timeout time.Duration `help:"Neural engine time bound, 0 for none (neural)." default:"0"`
	Out     string        `help:"Output directory for stems and report." default:"stems" type:"path"`
	Report  string        `help:"Report file name inside the output directory." default:"report.json"`
	Verbose bool          `short:"v" help:"Verbose logging."`
}

// Validate rejects an unusable band before any audio is loaded.
func (c *CLI) Validate() error {
	if c.Method != "hpss-filter" {
		return nil
	}

	if c.Low < minCutoffHz || c.High > maxCutoffHz || c.Low >= c.High {
		return fmt.Errorf("band [%g, %g] Hz must satisfy %g <= low < high <= %g",
			c.Low, c.High, minCutoffHz, maxCutoffHz)
	}

	return nil
}

func main() {
	cli := &CLI{}
	ktx := kong.Parse(cli,
		kong.Name("stemsep"),
		kong.Description("Separate a two-instrument recording into stems and build an analysis report."),
		kong.UsageOnError(),
	)

	ktx.FatalIfErrorf(run(cli))
}

func run(cli *CLI) error {
	logger, err := newLogger(cli.Verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	method, err := separate.ParseMethod(cli.Method)
	if err != nil {
		return err
	}

	mix, err := audioio.Load(cli.Input)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := separate.Config{
		Method:  method,
		Filter:  notch.Spec{LowHz: cli.Low, HighHz: cli.High, Order: cli.Order},
		Model:   cli.Model,
		Timeout: cli.Timeout,
		Logger:  logger,
	}

	res, err := separate.Run(ctx, separate.Source{Path: cli.Input, Mix: mix}, cfg)
	if err != nil {
		return err
	}

	return writeOutputs(res, cli.Out, cli.Report, logger)
}

// newLogger builds a console logger: debug level when verbose, warnings
// and up otherwise.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	return cfg.Build()
}

// writeOutputs stores every stem as a WAV named after its label, then the
// report document as JSON.
func writeOutputs(res *separate.Result, outDir, reportName string, logger *zap.Logger) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	fmt.Printf("method: %s\n", res.Method)

	for _, stem := range res.Stems.Stems() {
		path := filepath.Join(outDir, audioio.StemFileName(stem.Label))
		if err := audioio.Save(path, stem.Signal); err != nil {
			return fmt.Errorf("write stem %s: %w", stem.Label, err)
		}

		logger.Debug("stem written", zap.String("label", stem.Label), zap.String("path", path))
		fmt.Printf("stem: %s -> %s\n", stem.Label, path)
	}

	reportPath := filepath.Join(outDir, reportName)

	f, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	if err := res.Report.WriteJSON(f); err != nil {
		f.Close()

		return fmt.Errorf("write report: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Printf("report: %s\n", reportPath)

	return nil
}
