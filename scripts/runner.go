package scripts

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/nijaru/vid-text/device"
	apperrors "github.com/nijaru/vid-text/errors"
	"github.com/nijaru/vid-text/models"
)

const (
	DefaultScript = "transcribe.py"

	// exitInvalidInput is the helper's exit status for audio it cannot decode.
	exitInvalidInput = 3

	errorKindInvalidInput = "invalid_input"
	stderrTailLines       = 20
)

// Config holds the configuration for the Runner
type Config struct {
	Command          string        // executable, "uv" by default
	Args             []string      // arguments before the per-request ones; defaults to run <script>
	ScriptsPath      string        // working directory holding transcribe.py
	Environment      []string      // additional environment variables
	ProgressInterval time.Duration // minimum gap between progress log lines
	WaitDelay        time.Duration // grace period for stray helper processes after cancel
}

// Request is one call into the model.
type Request struct {
	InputPath string
	ModelName string
	Language  string
	Verbose   bool
	Device    device.Selection
}

// Runner invokes the Whisper helper script and decodes its JSON output.
type Runner struct {
	config Config
	logger *logrus.Logger
}

func NewRunner(cfg Config) (*Runner, error) {
	const op = "scripts.NewRunner"

	if cfg.Command == "" {
		cfg.Command = "uv"
	}
	if len(cfg.Args) == 0 {
		scriptPath := filepath.Join(cfg.ScriptsPath, DefaultScript)
		if _, err := os.Stat(scriptPath); err != nil {
			return nil, apperrors.Configuration(op, err, "required script not found: "+scriptPath)
		}
		cfg.Args = []string{"run", DefaultScript}
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 5 * time.Second
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = 5 * time.Second
	}

	return &Runner{
		config: cfg,
		logger: logrus.StandardLogger(),
	}, nil
}

type helperOutput struct {
	Segments  []models.Segment `json:"segments"`
	Language  string           `json:"language"`
	ModelName string           `json:"model_name"`
	Error     string           `json:"error,omitempty"`
	ErrorKind string           `json:"error_kind,omitempty"`
}

// Transcribe blocks until the helper exits. Audio the model cannot read comes back
// as an InvalidInput error; every other failure is a Model error.
func (r *Runner) Transcribe(ctx context.Context, req Request) (*models.Transcript, error) {
	const op = "scripts.Runner.Transcribe"

	args := append(append([]string{}, r.config.Args...), buildTranscribeArgs(req)...)
	logger := r.logger.WithFields(logrus.Fields{
		"input":  req.InputPath,
		"model":  req.ModelName,
		"device": req.Device.Device,
	})
	logger.WithFields(logrus.Fields{
		"command": r.config.Command,
		"args":    args,
		"dir":     r.config.ScriptsPath,
	}).Debug("Executing transcription helper")

	progress := newProgressLog(logger, req.Verbose, r.config.ProgressInterval)

	var stdout bytes.Buffer
	stderr := newLineWriter(progress.line)
	cmd := exec.CommandContext(ctx, r.config.Command, args...)
	cmd.Dir = r.config.ScriptsPath
	cmd.Env = buildEnvironment(r.config.Environment)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = r.config.WaitDelay

	start := time.Now()
	runErr := cmd.Run()
	stderr.Flush()

	var out helperOutput
	parseErr := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &out)

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperrors.Model(op, ctxErr, "transcription interrupted")
		}
		var exitErr *exec.ExitError
		invalid := errors.As(runErr, &exitErr) && exitErr.ExitCode() == exitInvalidInput
		if invalid || (parseErr == nil && out.ErrorKind == errorKindInvalidInput) {
			return nil, apperrors.InvalidInput(op, errors.New(helperMessage(out, progress)), "not a valid file")
		}
		return nil, apperrors.Model(op, errors.Wrap(runErr, helperMessage(out, progress)), "transcription helper failed")
	}

	if parseErr != nil {
		return nil, apperrors.Model(op, errors.Wrap(parseErr, "invalid JSON output"), "transcription helper failed")
	}
	if out.Error != "" || out.ErrorKind != "" {
		if out.ErrorKind == errorKindInvalidInput {
			return nil, apperrors.InvalidInput(op, errors.New(out.Error), "not a valid file")
		}
		return nil, apperrors.Model(op, errors.New(out.Error), "transcription helper failed")
	}

	logger.WithFields(logrus.Fields{
		"segments": len(out.Segments),
		"language": out.Language,
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Debug("Transcription helper finished")

	return &models.Transcript{
		Segments:  out.Segments,
		Language:  out.Language,
		ModelName: out.ModelName,
	}, nil
}

func buildTranscribeArgs(req Request) []string {
	args := []string{
		req.InputPath,
		"--model", req.ModelName,
		"--device", req.Device.Device,
		"--seed", strconv.FormatInt(req.Device.Seed, 10),
		"--json",
	}
	if req.Language != "" {
		args = append(args, "--language", req.Language)
	}
	if req.Verbose {
		args = append(args, "--verbose")
	}
	return args
}

func buildEnvironment(additionalEnv []string) []string {
	env := append(os.Environ(),
		"PYTORCH_CUDA_ALLOC_CONF=max_split_size_mb:512",
		"PYTHONUNBUFFERED=1",
	)
	return append(env, additionalEnv...)
}

// helperMessage prefers the helper's own JSON error over raw stderr.
func helperMessage(out helperOutput, progress *progressLog) string {
	if out.Error != "" {
		return out.Error
	}
	if tail := progress.tail(); tail != "" {
		return tail
	}
	return "no output"
}

// progressLog forwards helper stderr to the logger. Verbose runs see every line;
// otherwise progress is throttled and the last lines are kept for error messages.
type progressLog struct {
	logger    *logrus.Entry
	verbose   bool
	sometimes *rate.Sometimes
	lines     []string
}

func newProgressLog(logger *logrus.Entry, verbose bool, interval time.Duration) *progressLog {
	return &progressLog{
		logger:    logger,
		verbose:   verbose,
		sometimes: &rate.Sometimes{First: 1, Interval: interval},
	}
}

func (p *progressLog) line(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	p.lines = append(p.lines, text)
	if len(p.lines) > stderrTailLines {
		p.lines = p.lines[len(p.lines)-stderrTailLines:]
	}

	if p.verbose {
		p.logger.Info(text)
		return
	}
	p.sometimes.Do(func() {
		p.logger.WithField("progress", text).Info("Transcribing")
	})
}

func (p *progressLog) tail() string {
	return strings.Join(p.lines, "\n")
}

// lineWriter splits a byte stream on \n and \r, so progress bars redrawn in place
// arrive as separate lines.
type lineWriter struct {
	buf  []byte
	emit func(string)
}

func newLineWriter(emit func(string)) *lineWriter {
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexAny(w.buf, "\r\n")
		if i < 0 {
			break
		}
		w.emit(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) Flush() {
	if len(w.buf) > 0 {
		w.emit(string(w.buf))
		w.buf = nil
	}
}
