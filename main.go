package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/vid-text/config"
	"github.com/nijaru/vid-text/db"
	"github.com/nijaru/vid-text/device"
	apperrors "github.com/nijaru/vid-text/errors"
	"github.com/nijaru/vid-text/logger"
	"github.com/nijaru/vid-text/models"
	"github.com/nijaru/vid-text/scripts"
	"github.com/nijaru/vid-text/storage"
	"github.com/nijaru/vid-text/transcription"
)

const (
	exitSuccess = 0
	exitFailed  = 1
	exitUsage   = 2
	exitSkipped = 3
)

type options struct {
	Filename   string
	ModelName  string
	Language   string
	Verbose    bool
	Force      bool
	ConfigPath string
	configSet  bool
	History    int
}

var errUsage = errors.New("usage error")

// parseArgs accepts flags before and after the input file name.
func parseArgs(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("vid-text", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.ModelName, "model", "small", "Whisper model name or checkpoint path")
	fs.StringVar(&opts.Language, "language", "english", "spoken language, or auto to detect")
	fs.BoolVar(&opts.Verbose, "verbose", false, "stream model progress and debug logs")
	fs.BoolVar(&opts.Force, "force", false, "transcribe again even if a transcript is pending archive")
	fs.StringVar(&opts.ConfigPath, "config", config.DefaultConfigFile, "KEY=VALUE configuration file")
	fs.IntVar(&opts.History, "history", 0, "print the last N runs and exit")
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: vid-text [flags] <input_file_path>")
		fs.PrintDefaults()
	}

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return opts, err
		}
		rest := fs.Args()
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			positional = append(positional, rest...)
			break
		}
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			opts.configSet = true
		}
	})

	if opts.History < 0 {
		return opts, errors.Wrap(errUsage, "--history must not be negative")
	}
	if opts.History > 0 {
		return opts, nil
	}
	switch len(positional) {
	case 1:
		opts.Filename = positional[0]
	case 0:
		fs.Usage()
		return opts, errors.Wrap(errUsage, "input file path is required")
	default:
		return opts, errors.Wrapf(errUsage, "expected one input file, got %d", len(positional))
	}
	return opts, nil
}

func exitCode(out transcription.Outcome) int {
	switch out.Status {
	case transcription.StatusSuccess:
		return exitSuccess
	case transcription.StatusSkipped:
		return exitSkipped
	default:
		return exitFailed
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}

	logrus.SetOutput(stderr)
	cfg, err := config.Load(opts.ConfigPath, opts.configSet)
	if err != nil {
		logrus.WithError(err).Error("Invalid configuration")
		return exitUsage
	}

	closer, err := logger.Setup(logger.Options{LogDir: cfg.LogDir, Verbose: opts.Verbose, Console: stderr})
	if err != nil {
		logrus.WithError(err).Error("Failed to set up logging")
		return exitUsage
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger, err := db.Open(cfg.DBPath)
	if err != nil {
		logrus.WithError(err).WithField("path", cfg.DBPath).Error("Failed to open run ledger")
		return exitFailed
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close run ledger")
		}
	}()

	if opts.History > 0 {
		if err := printHistory(ctx, ledger, opts.History, stdout); err != nil {
			logrus.WithError(err).Error("Failed to read run history")
			return exitFailed
		}
		return exitSuccess
	}

	runner, err := scripts.NewRunner(scripts.Config{
		Command:          cfg.UVPath,
		ScriptsPath:      cfg.ScriptsPath,
		ProgressInterval: cfg.ProgressInterval,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to initialize transcription helper")
		return exitUsage
	}

	if cfg.TranscribeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.TranscribeTimeout)
		defer cancel()
	}

	svc := transcription.NewService(transcription.Config{
		Paths: transcription.Paths{
			VideoRoot:         cfg.VideoPath,
			TranscriptionRoot: cfg.TranscriptionsPath,
			ArchiveRoot:       cfg.ArchivePath,
		},
		Device: device.Select(cfg.Device, nil),
	}, runner, ledger, newMirror(ctx, cfg.Mirror))

	out := svc.Transcribe(ctx, models.TranscriptionRequest{
		Filename:  opts.Filename,
		ModelName: opts.ModelName,
		Language:  opts.Language,
		Verbose:   opts.Verbose,
		Force:     opts.Force,
	})
	report(out)
	return exitCode(out)
}

func report(out transcription.Outcome) {
	entry := logrus.WithFields(logrus.Fields{
		"status":  out.Status.String(),
		"elapsed": out.Elapsed.Round(time.Millisecond),
	})
	if out.RunID != "" {
		entry = entry.WithField("run", out.RunID)
	}
	switch out.Status {
	case transcription.StatusSuccess:
		entry.Info(out.Message())
	case transcription.StatusSkipped:
		entry.WithField("kind", apperrors.KindOf(out.Err).String()).Warn(out.Message())
	default:
		entry.WithField("kind", apperrors.KindOf(out.Err).String()).Error(out.Message())
	}
}

func newMirror(ctx context.Context, cfg config.MirrorConfig) transcription.Mirror {
	if !cfg.Enabled() {
		return nil
	}
	client, err := storage.NewSpacesClient(ctx, storage.SpacesConfig{
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		Bucket:    cfg.Bucket,
		Prefix:    cfg.Prefix,
	})
	if err != nil {
		logrus.WithError(err).Warn("Transcript mirror disabled")
		return nil
	}
	return client
}

func printHistory(ctx context.Context, ledger *db.Ledger, limit int, w io.Writer) error {
	runs, err := ledger.Recent(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UPDATED\tSTATUS\tFILE\tMODEL\tDEVICE\tSEGMENTS\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.UpdatedAt.Local().Format(time.DateTime), r.Status, r.Filename,
			r.ModelName, r.Device, r.Segments, r.Error)
	}
	return tw.Flush()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
