package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/phrazzld/prompttick/internal/events"
	"github.com/phrazzld/prompttick/internal/generation"
	"github.com/phrazzld/prompttick/internal/scan"
	"github.com/phrazzld/prompttick/internal/state"
)

// MinInterval is the shortest pause between two rounds of Loop.
const MinInterval = time.Second

const previewLength = 80

// Scanner lists the candidate files of a round in processing order.
type Scanner interface {
	Scan() ([]scan.CandidateFile, error)
}

// Options configures an Orchestrator.
type Options struct {
	// OutputDir receives one output file per processed prompt
	OutputDir string

	// BatchSize caps the files handled per round, at least 1
	BatchSize int

	// MaxConsecutiveFailures quarantines a path after that many failures in a
	// row; 0 never quarantines
	MaxConsecutiveFailures int

	// TrackedPaths bounds the failure tracker, DefaultTrackedPaths when <= 0
	TrackedPaths int
}

// Orchestrator runs processing rounds over the input directory.
type Orchestrator struct {
	generator generation.Generator
	scanner   Scanner
	store     state.Store
	emitter   events.EventEmitter
	writer    *OutputWriter
	tracker   *FailureTracker
	batchSize int
	logger    *slog.Logger

	// sleep waits between rounds; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// outcome of a single file within a round.
type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeFailed
)

// New creates an orchestrator. emitter may be nil.
func New(
	logger *slog.Logger,
	generator generation.Generator,
	scanner Scanner,
	store state.Store,
	emitter events.EventEmitter,
	opts Options,
) (*Orchestrator, error) {
	if generator == nil {
		return nil, fmt.Errorf("%w: generator is required", generation.ErrConfiguration)
	}
	if scanner == nil {
		return nil, fmt.Errorf("%w: scanner is required", generation.ErrConfiguration)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: state store is required", generation.ErrConfiguration)
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("%w: output directory is required", generation.ErrConfiguration)
	}

	batchSize := opts.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	return &Orchestrator{
		generator: generator,
		scanner:   scanner,
		store:     store,
		emitter:   emitter,
		writer:    NewOutputWriter(opts.OutputDir),
		tracker:   NewFailureTracker(opts.MaxConsecutiveFailures, opts.TrackedPaths),
		batchSize: batchSize,
		logger:    logger.With("component", "orchestrator", "adapter", generator.Name()),
		sleep:     generation.Sleep,
	}, nil
}

// Tracker exposes the failure tracker.
func (o *Orchestrator) Tracker() *FailureTracker { return o.tracker }

// capacity returns the number of files a round may handle.
func (o *Orchestrator) capacity(limit *int) int {
	if limit == nil {
		return o.batchSize
	}
	return min(o.batchSize, max(*limit, 0))
}

// pending returns the loaded state and the capped list of files still to do.
func (o *Orchestrator) pending(ctx context.Context, capacity int) (*state.ProcessingState, []scan.CandidateFile, error) {
	processed := o.store.Load(ctx)

	files, err := o.scanner.Scan()
	if err != nil {
		return nil, nil, fmt.Errorf("scan input directory: %w", err)
	}

	var todo []scan.CandidateFile
	for _, f := range files {
		if len(todo) == capacity {
			break
		}
		if processed.Has(f.Path) {
			continue
		}
		if o.tracker.Quarantined(f.Path) {
			o.logger.DebugContext(ctx, "skipping quarantined file", "path", f.Path)
			continue
		}
		todo = append(todo, f)
	}
	return processed, todo, nil
}

// RunOnce processes one batch and returns the number of output files written.
// A nil limit uses the configured batch size; otherwise the smaller of the two
// applies and a non-positive limit processes nothing. File failures are
// isolated; only a scan or state persistence failure is returned.
func (o *Orchestrator) RunOnce(ctx context.Context, limit *int) (int, error) {
	capacity := o.capacity(limit)
	if capacity == 0 {
		o.logger.InfoContext(ctx, "limit is zero, nothing to do")
		return 0, nil
	}

	processed, todo, err := o.pending(ctx, capacity)
	if err != nil {
		return 0, err
	}
	if len(todo) == 0 {
		o.logger.DebugContext(ctx, "no pending files")
		return 0, nil
	}

	run := uuid.New()
	log := o.logger.With("run_id", run.String())
	log.InfoContext(ctx, "round started", "pending", len(todo))
	started := time.Now()

	var written, skipped, failed int
	for _, f := range todo {
		if ctx.Err() != nil {
			log.InfoContext(ctx, "round interrupted", "remaining", len(todo)-written-skipped-failed)
			break
		}
		switch o.processFile(ctx, log, run, f) {
		case outcomeProcessed:
			processed.Add(f.Path)
			written++
		case outcomeSkipped:
			processed.Add(f.Path)
			skipped++
		default:
			failed++
		}
	}

	// The set is persisted even when the round was interrupted.
	if err := o.store.Save(context.WithoutCancel(ctx), processed); err != nil {
		log.ErrorContext(ctx, "failed to persist state", "error", err)
		return written, fmt.Errorf("failed to persist state: %w", err)
	}

	completed := events.New(events.TypeRoundCompleted, run)
	completed.Processed = written
	o.emit(ctx, completed)

	log.InfoContext(ctx, "round completed",
		"processed", written,
		"skipped", skipped,
		"failed", failed,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return written, nil
}

// processFile handles one file. Panics from any step are recovered as a
// file failure.
func (o *Orchestrator) processFile(ctx context.Context, log *slog.Logger, run uuid.UUID, f scan.CandidateFile) (result outcome) {
	log = log.With("path", f.Path)

	defer func() {
		if r := recover(); r != nil {
			result = o.fail(ctx, log, run, f, fmt.Errorf("%w: %v", ErrPanic, r))
		}
	}()

	prompt, err := readPrompt(f.Path)
	if err != nil {
		return o.fail(ctx, log, run, f, err)
	}

	if strings.TrimSpace(prompt) == "" {
		log.InfoContext(ctx, "empty prompt, skipping")
		o.tracker.Success(f.Path)
		skippedEvent := events.New(events.TypeFileSkipped, run)
		skippedEvent.Path = f.Path
		o.emit(ctx, skippedEvent)
		return outcomeSkipped
	}

	log.InfoContext(ctx, "processing file",
		"size", f.Size,
		"prompt_preview", generation.Preview(prompt, previewLength),
	)

	reply := o.generator.Generate(ctx, prompt)
	if generation.IsErrorText(reply) {
		return o.fail(ctx, log, run, f, fmt.Errorf("%w: %s", ErrGeneration, reply))
	}

	output, err := o.writer.Write(f.Name, reply)
	if err != nil {
		return o.fail(ctx, log, run, f, err)
	}

	o.tracker.Success(f.Path)
	log.InfoContext(ctx, "output written", "output", output, "chars", utf8.RuneCountInString(reply))

	processedEvent := events.New(events.TypeFileProcessed, run)
	processedEvent.Path = f.Path
	processedEvent.OutputPath = output
	o.emit(ctx, processedEvent)
	return outcomeProcessed
}

func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, run uuid.UUID, f scan.CandidateFile, err error) outcome {
	count, quarantined := o.tracker.Failure(f.Path)
	log.ErrorContext(ctx, "failed to process file", "error", err, "consecutive_failures", count)
	if quarantined {
		log.WarnContext(ctx, "file quarantined until restart or rescan", "consecutive_failures", count)
	}

	failedEvent := events.New(events.TypeFileFailed, run)
	failedEvent.Path = f.Path
	failedEvent.Error = err.Error()
	o.emit(ctx, failedEvent)
	return outcomeFailed
}

func (o *Orchestrator) emit(ctx context.Context, event *events.Event) {
	if o.emitter == nil {
		return
	}
	if err := o.emitter.EmitEvent(ctx, event); err != nil {
		o.logger.DebugContext(ctx, "event handler reported an error", "event_type", event.Type, "error", err)
	}
}

// readPrompt returns the file content with invalid UTF-8 sequences replaced
// by U+FFFD.
func readPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadPrompt, err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), nil
}

// DryRun returns the files the next round would process. It calls no
// generator and writes neither state nor output.
func (o *Orchestrator) DryRun(ctx context.Context, limit *int) ([]scan.CandidateFile, error) {
	capacity := o.capacity(limit)
	if capacity == 0 {
		return []scan.CandidateFile{}, nil
	}

	_, todo, err := o.pending(ctx, capacity)
	if err != nil {
		return nil, err
	}
	if todo == nil {
		todo = []scan.CandidateFile{}
	}
	for _, f := range todo {
		o.logger.InfoContext(ctx, "would process", "path", f.Path, "size", f.Size)
	}
	return todo, nil
}

// Rescan clears the persisted processed set so every file is handled again.
// Quarantined paths are released too.
func (o *Orchestrator) Rescan(ctx context.Context) error {
	if err := o.store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset state: %w", err)
	}
	o.tracker.Reset()
	o.logger.InfoContext(ctx, "state reset, all files will be processed again")
	return nil
}

// Loop runs rounds until ctx is cancelled, pausing max(interval, MinInterval)
// between them. Round errors are logged and do not stop the loop.
func (o *Orchestrator) Loop(ctx context.Context, interval time.Duration, limit *int) error {
	interval = max(interval, MinInterval)
	o.logger.InfoContext(ctx, "polling started", "interval", interval.String())

	for {
		if _, err := o.RunOnce(ctx, limit); err != nil {
			o.logger.ErrorContext(ctx, "round failed", "error", err)
		}
		if err := o.sleep(ctx, interval); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				o.logger.InfoContext(ctx, "polling stopped")
				return nil
			}
			return err
		}
	}
}
