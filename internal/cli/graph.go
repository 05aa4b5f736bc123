package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/vehicle"
	"github.com/aretw0/vehicle/internal/config"
	"github.com/aretw0/vehicle/internal/logging"
	"github.com/aretw0/vehicle/internal/presentation/graph"
	"github.com/aretw0/vehicle/internal/presentation/tui"
	"github.com/aretw0/vehicle/internal/validator"
	"github.com/aretw0/vehicle/pkg/domain"
)

// Graph output formats.
const (
	FormatMermaid  = "mermaid"
	FormatMarkdown = "markdown"
)

// GraphOptions contains the flags of the graph command.
type GraphOptions struct {
	ConfigPath     string
	ConfigRequired bool
	Format         string
	// Check fails when the pipeline has error-level findings.
	Check bool

	Stdout io.Writer
}

// Graph prints the drive pipeline without starting it.
func Graph(ctx context.Context, opts GraphOptions) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	descs, err := DescribeDrive(ctx, opts.ConfigPath, opts.ConfigRequired)
	if err != nil {
		return err
	}

	switch opts.Format {
	case FormatMarkdown:
		md := graph.GenerateMarkdown(descs)
		if opts.Stdout == os.Stdout && tui.IsTerminal(os.Stdout) {
			if rendered, err := tui.NewRenderer()(md); err == nil {
				md = rendered
			}
		}
		fmt.Fprint(opts.Stdout, md)
	case FormatMermaid, "":
		fmt.Fprint(opts.Stdout, graph.GenerateMermaid(descs))
	default:
		return fmt.Errorf("unknown format %q", opts.Format)
	}

	prefix := "%% "
	if opts.Format == FormatMarkdown {
		prefix = "> "
	}
	for _, f := range validator.Validate(descs) {
		fmt.Fprintf(opts.Stdout, "%s%s\n", prefix, f)
	}
	if opts.Check {
		return validator.Check(descs)
	}
	return nil
}

// DescribeDrive assembles the drive pipeline against an in-memory tub and
// returns its descriptors. Nothing is started.
func DescribeDrive(ctx context.Context, configPath string, required bool) ([]domain.Descriptor, error) {
	cfg, err := config.Load(configPath, required)
	if err != nil {
		return nil, err
	}
	cfg.Tub.Backend = config.BackendMemory

	v := vehicle.New(vehicle.WithLogger(logging.NewNop()))
	defer v.Close()
	if _, err := AssembleDrive(ctx, v, cfg, DriveOptions{}); err != nil {
		return nil, err
	}
	return v.Describe(), nil
}
