package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/ipcheck"
	logAdapter "github.com/bft-labs/ipcheck/internal/adapters/log"
	"github.com/bft-labs/ipcheck/internal/adapters/fs"
	"github.com/bft-labs/ipcheck/internal/app"
	"github.com/bft-labs/ipcheck/internal/checksum"
	"github.com/bft-labs/ipcheck/internal/cliconfig"
	"github.com/bft-labs/ipcheck/internal/domain"
	"github.com/bft-labs/ipcheck/internal/render"
)

const helpDescription = `
Checksum an information package and validate it against a validation service.

The package is read once to compute its digest. The digest and the package
are then uploaded together and the returned report is printed with its
status and every validation entry.

Configure via $HOME/.ipcheck/config.toml, IPCHECK_* environment variables
(a .env file in the working directory is honoured) or flags.
`

var exampleUsage = strings.TrimSpace(`
  ipcheck package.zip
  ipcheck --service-url https://validator.example.org --algorithm sha256 package.tar.gz
  ipcheck --digest-only package.zip
  ipcheck --watch --save-report report.json package.zip
`)

// errInvalidPackage is returned when the service reports the package as invalid.
var errInvalidPackage = errors.New("package is not valid")

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "ipcheck [flags] <package>",
		Short:   "Checksum and validate an information package",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:    cobra.ExactArgs(1),
		// errors are logged once below
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cliconfig.LoadDotEnv(); err != nil {
				return fmt.Errorf("load .env: %w", err)
			}

			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// IPCHECK_* override the file but not explicit flags
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cliconfig.SetLogLevel(cfg.LogLevel); err != nil {
				return err
			}
			log.Debug().Interface("config", cfg).Msg("configuration")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r := &runner{
				cfg:     cfg,
				path:    args[0],
				log:     log,
				printer: render.NewPrinter(os.Stdout, render.Format(cfg.Output), !cfg.NoColor),
			}
			wf, err := ipcheck.NewWorkflow(cfg, log, app.WithEmitter(app.EmitterFunc(r.onStateChange)))
			if err != nil {
				return err
			}
			r.wf = wf

			if cfg.Watch {
				return r.watch(ctx)
			}
			return r.cycle(ctx)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.ipcheck/config.toml)")
	root.Flags().StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "validation service base URL")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout for one submission")
	root.Flags().StringVar(&cfg.Algorithm, "algorithm", cfg.Algorithm, "digest algorithm ("+algorithmList()+")")
	root.Flags().IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "read size in bytes while computing the digest")
	root.Flags().StringVar(&cfg.Output, "output", cfg.Output, "output format (text, json)")
	root.Flags().BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "disable colored output")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "re-validate whenever the package file changes")
	root.Flags().DurationVar(&cfg.DebounceDelay, "debounce", cfg.DebounceDelay, "quiet period before a changed package is re-validated")
	root.Flags().StringVar(&cfg.SaveReport, "save-report", cfg.SaveReport, "write every received report to this JSON file")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error, disabled)")
	root.Flags().BoolVar(&cfg.DigestOnly, "digest-only", cfg.DigestOnly, "print the digest and exit without submitting")
	if err := root.Flags().MarkHidden("chunk-size"); err != nil {
		log.Info().Err(err).Msg("failed to hide chunk-size flag")
	}

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("ipcheck")
		os.Exit(1)
	}
}

func algorithmList() string {
	names := make([]string, len(domain.Algorithms))
	for i, a := range domain.Algorithms {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

type runner struct {
	cfg     cliconfig.Config
	path    string
	log     zerolog.Logger
	wf      *app.Workflow
	printer *render.Printer
}

func (r *runner) onStateChange(_, cur app.State, _ string) {
	if cur == app.StateAwaitingDigest {
		r.log.Info().Str("file", r.path).Msg(app.PendingDigestText)
	}
}

// cycle selects the package, prints its digest and, unless digest-only,
// submits it and prints the report.
func (r *runner) cycle(ctx context.Context) error {
	file, err := fs.SelectLocalFile(r.path)
	if err != nil {
		return err
	}
	v, err := r.wf.Digest(ctx, file)
	if err != nil {
		return err
	}
	if !checksum.IsArchive(v.MIME) {
		r.log.Warn().Str("file", v.File).Str("mime", v.MIME).Msg("package does not look like an archive")
	}
	if err := r.printer.PrintDigest(v.File, r.cfg.Algorithm, v.DigestText()); err != nil {
		return err
	}
	if r.cfg.DigestOnly {
		return nil
	}

	tree, err := r.wf.SubmitGeneration(ctx, v.Generation)
	if err != nil {
		return err
	}
	if err := r.printer.Print(tree); err != nil {
		return err
	}
	if st := r.wf.Snapshot(); st.Generation == v.Generation && st.Report != nil && !st.Report.Status.Valid {
		return errInvalidPackage
	}
	return nil
}

// watch runs a cycle now and again after every change to the package file.
func (r *runner) watch(ctx context.Context) error {
	run := func() {
		err := r.cycle(ctx)
		switch {
		case err == nil, errors.Is(err, domain.ErrSuperseded), errors.Is(err, context.Canceled):
		default:
			r.log.Error().Err(err).Msg("validation cycle")
		}
	}
	go run()

	w := fs.NewWatcher(r.path, r.cfg.DebounceDelay, logAdapter.NewZerologAdapterWithLogger(r.log))
	if err := w.Run(ctx, func() { go run() }); err != nil {
		return err
	}
	r.log.Info().Msg("received signal, stopping...")
	return nil
}
