package transcription

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/vid-text/device"
	apperrors "github.com/nijaru/vid-text/errors"
	"github.com/nijaru/vid-text/models"
	"github.com/nijaru/vid-text/scripts"
	"github.com/nijaru/vid-text/validation"
)

// Transcriber is the model capability.
type Transcriber interface {
	Transcribe(ctx context.Context, req scripts.Request) (*models.Transcript, error)
}

// Ledger records run progress. Implemented by db.Ledger.
type Ledger interface {
	StartRun(ctx context.Context, run *models.Run) error
	MarkWritten(ctx context.Context, id, outputPath string, segments int) error
	MarkArchived(ctx context.Context, id, archivePath string) error
	MarkSkipped(ctx context.Context, id, reason string) error
	MarkFailed(ctx context.Context, id, reason string) error
	RecordArchiveError(ctx context.Context, id, reason string) error
	PendingArchive(ctx context.Context, filename string) (*models.Run, error)
}

// Mirror receives a copy of each finished transcript. Implemented by storage.SpacesClient.
type Mirror interface {
	SaveTranscript(ctx context.Context, relPath string, content []byte) (string, error)
}

// Paths holds the three configured roots.
type Paths struct {
	VideoRoot         string
	TranscriptionRoot string
	ArchiveRoot       string
}

type PathSet struct {
	Input   string
	Output  string
	Archive string
}

// Resolve derives the paths for a file name relative to the video root. The
// transcript keeps the name with its extension replaced by .txt; the archived file
// keeps the name unchanged.
func (p Paths) Resolve(rel string) PathSet {
	return PathSet{
		Input:   filepath.Join(p.VideoRoot, rel),
		Output:  filepath.Join(p.TranscriptionRoot, OutputName(rel)),
		Archive: filepath.Join(p.ArchiveRoot, rel),
	}
}

func OutputName(rel string) string {
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + ".txt"
}

type Config struct {
	Paths  Paths
	Device device.Selection
}

type Service struct {
	config      Config
	transcriber Transcriber
	ledger      Ledger
	mirror      Mirror
	logger      *logrus.Logger
}

// NewService wires the pipeline. ledger and mirror may be nil.
func NewService(cfg Config, transcriber Transcriber, ledger Ledger, mirror Mirror) *Service {
	return &Service{
		config:      cfg,
		transcriber: transcriber,
		ledger:      ledger,
		mirror:      mirror,
		logger:      logrus.StandardLogger(),
	}
}

// Transcribe runs one request through model, writer and archiver. Files the model
// cannot read end Skipped with nothing written or moved; filesystem and model
// failures end Failed.
func (s *Service) Transcribe(ctx context.Context, req models.TranscriptionRequest) Outcome {
	start := time.Now()
	out := Outcome{Request: req}
	logger := s.logger.WithField("filename", req.Filename)

	rel, language, err := s.validate(req)
	if err != nil {
		return s.finish(out, start, err)
	}
	out.Paths = s.config.Paths.Resolve(rel)
	logger.WithField("input", out.Paths.Input).Info("Processing")

	run := s.resumable(ctx, rel, out.Paths, req.Force)
	var content []byte

	if run != nil {
		out.Resumed = true
		out.Segments = run.Segments
		logger.WithField("output", out.Paths.Output).Info("Transcript already written, retrying archive")
	} else {
		run = &models.Run{
			Filename:  rel,
			ModelName: req.ModelName,
			Language:  language,
			Device:    s.config.Device.Device,
		}
		s.record(logger, "start run", s.startRun(ctx, run))

		logger.WithFields(logrus.Fields{
			"model":    req.ModelName,
			"language": languageLabel(language),
			"device":   s.config.Device.Device,
		}).Info("Transcribing")

		transcript, err := s.transcriber.Transcribe(ctx, scripts.Request{
			InputPath: out.Paths.Input,
			ModelName: req.ModelName,
			Language:  language,
			Verbose:   req.Verbose,
			Device:    s.config.Device,
		})
		if err != nil {
			if apperrors.IsInvalidInput(err) {
				logger.WithError(err).Warn("Not a valid file, skipping")
				s.record(logger, "mark skipped", s.markSkipped(ctx, run, err))
			} else {
				s.record(logger, "mark failed", s.markFailed(ctx, run, err))
			}
			out.RunID = run.ID
			return s.finish(out, start, err)
		}

		logger.WithField("output", out.Paths.Output).Info("Writing output")
		content, err = WriteTranscript(out.Paths.Output, rel, transcript.Segments)
		if err != nil {
			s.record(logger, "mark failed", s.markFailed(ctx, run, err))
			out.RunID = run.ID
			return s.finish(out, start, err)
		}
		out.Segments = len(transcript.Segments)
		s.record(logger, "mark written", s.markWritten(ctx, run, out.Paths.Output, out.Segments))
	}
	out.RunID = run.ID

	if err := Archive(s.config.Paths.ArchiveRoot, out.Paths.Input, out.Paths.Archive); err != nil {
		logger.WithField("output", out.Paths.Output).Error("Transcript written but input was not archived; rerun to retry the move")
		s.record(logger, "record archive error", s.recordArchiveError(ctx, run, err))
		return s.finish(out, start, err)
	}
	s.record(logger, "mark archived", s.markArchived(ctx, run, out.Paths.Archive))
	logger.WithField("archive", out.Paths.Archive).Debug("Input archived")

	s.mirrorTranscript(ctx, logger, out.Paths.Output, content)

	logger.Info("Complete")
	return s.finish(out, start, nil)
}

func (s *Service) validate(req models.TranscriptionRequest) (string, string, error) {
	rel, err := validation.ValidateFilename(s.config.Paths.VideoRoot, req.Filename)
	if err != nil {
		return "", "", err
	}
	language, err := validation.NormalizeLanguage(req.Language)
	if err != nil {
		return "", "", err
	}
	if err := validation.ValidateModel(req.ModelName); err != nil {
		return "", "", err
	}
	return rel, language, nil
}

// resumable returns the ledger run whose transcript was written but never archived,
// provided that transcript is still on disk.
func (s *Service) resumable(ctx context.Context, rel string, paths PathSet, force bool) *models.Run {
	if s.ledger == nil || force {
		return nil
	}
	run, err := s.ledger.PendingArchive(ctx, rel)
	if err != nil {
		s.logger.WithError(err).Warn("Could not read run ledger, transcribing again")
		return nil
	}
	if run == nil || run.OutputPath != paths.Output {
		return nil
	}
	if _, err := os.Stat(paths.Output); err != nil {
		return nil
	}
	return run
}

func (s *Service) mirrorTranscript(ctx context.Context, logger *logrus.Entry, output string, content []byte) {
	if s.mirror == nil {
		return
	}
	if content == nil {
		var err error
		if content, err = os.ReadFile(output); err != nil {
			logger.WithError(err).Warn("Could not read transcript for mirroring")
			return
		}
	}
	rel, err := filepath.Rel(s.config.Paths.TranscriptionRoot, output)
	if err != nil {
		rel = filepath.Base(output)
	}
	key, err := s.mirror.SaveTranscript(ctx, rel, content)
	if err != nil {
		logger.WithError(err).Warn("Transcript mirror upload failed")
		return
	}
	logger.WithField("key", key).Info("Transcript mirrored")
}

func (s *Service) finish(out Outcome, start time.Time, err error) Outcome {
	out.Elapsed = time.Since(start)
	out.Err = err
	switch {
	case err == nil:
		out.Status = StatusSuccess
	case apperrors.IsInvalidInput(err), apperrors.IsKind(err, apperrors.KindValidation):
		out.Status = StatusSkipped
	default:
		out.Status = StatusFailed
	}
	return out
}

// Ledger writes are advisory: a failure is logged and never changes the outcome.
func (s *Service) record(logger *logrus.Entry, action string, err error) {
	if err != nil {
		logger.WithError(err).WithField("action", action).Warn("Run ledger update failed")
	}
}

func (s *Service) startRun(ctx context.Context, run *models.Run) error {
	if s.ledger == nil {
		return nil
	}
	return s.ledger.StartRun(ctx, run)
}

func (s *Service) markWritten(ctx context.Context, run *models.Run, output string, segments int) error {
	if s.ledger == nil || run.ID == "" {
		return nil
	}
	return s.ledger.MarkWritten(ctx, run.ID, output, segments)
}

func (s *Service) markArchived(ctx context.Context, run *models.Run, archive string) error {
	if s.ledger == nil || run.ID == "" {
		return nil
	}
	return s.ledger.MarkArchived(ctx, run.ID, archive)
}

func (s *Service) markSkipped(ctx context.Context, run *models.Run, cause error) error {
	if s.ledger == nil || run.ID == "" {
		return nil
	}
	return s.ledger.MarkSkipped(ctx, run.ID, cause.Error())
}

func (s *Service) markFailed(ctx context.Context, run *models.Run, cause error) error {
	if s.ledger == nil || run.ID == "" {
		return nil
	}
	return s.ledger.MarkFailed(ctx, run.ID, cause.Error())
}

func (s *Service) recordArchiveError(ctx context.Context, run *models.Run, cause error) error {
	if s.ledger == nil || run.ID == "" {
		return nil
	}
	return s.ledger.RecordArchiveError(ctx, run.ID, cause.Error())
}

func languageLabel(language string) string {
	if language == "" {
		return "auto"
	}
	return language
}
