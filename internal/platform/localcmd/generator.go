// Package localcmd implements a generator that hands the prompt to a local
// program. The prompt is written to a scratch file, the configured command
// template is rendered into an argument vector and executed directly (no
// shell), and the reply is read from stdout or from a designated output file.
package localcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/phrazzld/prompttick/internal/config"
	"github.com/phrazzld/prompttick/internal/generation"
	"github.com/phrazzld/prompttick/internal/redact"
)

// Template placeholders.
const (
	PlaceholderPromptPath = "${PROMPT_PATH}"
	PlaceholderModel      = "${MODEL}"
	PlaceholderArgs       = "${ARGS}"
	PlaceholderOutPath    = "${OUT_PATH}"
)

// Output modes.
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
)

const (
	tempPattern     = "promptick_local_"
	promptFileName  = "input.prompt.txt"
	defaultTimeout  = 120 * time.Second
	defaultSuffix   = ".out.txt"
	stderrLimit     = 800
	templatePreview = 120
	waitDelay       = 2 * time.Second
)

// Generator implements generation.Generator by running a local program.
type Generator struct {
	logger *slog.Logger

	engine     string
	model      string
	timeout    time.Duration
	workdir    string
	env        map[string]string
	template   string
	words      []string
	args       []string
	outputMode string
	outSuffix  string

	lookupEnv generation.LookupFunc
	tempRoot  string
}

// NewGenerator validates cfg and pre-splits the command template into words.
// Templates containing shell operators (; & | < >) are rejected since the
// command is never run through a shell.
func NewGenerator(logger *slog.Logger, cfg config.LocalConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	template := strings.TrimSpace(cfg.CommandTemplate)
	if template == "" {
		return nil, fmt.Errorf("%w: local.command_template is not configured", generation.ErrConfiguration)
	}

	parser := shellwords.NewParser()
	words, err := parser.Parse(template)
	if err != nil {
		return nil, fmt.Errorf("%w: local.command_template: %v", generation.ErrConfiguration, err)
	}
	if parser.Position >= 0 {
		return nil, fmt.Errorf("%w: local.command_template contains a shell operator at offset %d; pipes and redirections are not supported",
			generation.ErrConfiguration, parser.Position)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: local.command_template has no command", generation.ErrConfiguration)
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.OutputMode))
	switch mode {
	case "":
		mode = OutputStdout
	case OutputStdout, OutputFile:
	default:
		return nil, fmt.Errorf("%w: local.output_mode must be %q or %q, got %q",
			generation.ErrConfiguration, OutputStdout, OutputFile, cfg.OutputMode)
	}

	if cfg.TimeoutSeconds < 0 {
		return nil, fmt.Errorf("%w: local.timeout_seconds must not be negative", generation.ErrConfiguration)
	}
	timeout := generation.Seconds(cfg.TimeoutSeconds)
	if timeout == 0 {
		timeout = defaultTimeout
	}

	suffix := cfg.OutSuffix
	if suffix == "" {
		suffix = defaultSuffix
	}

	engine := cfg.Engine
	if engine == "" {
		engine = "cmd"
	}

	env := make(map[string]string, len(cfg.Env))
	for k, v := range cfg.Env {
		env[strings.ToUpper(k)] = v
	}

	return &Generator{
		logger:     logger.With("component", "local"),
		engine:     engine,
		model:      cfg.Model,
		timeout:    timeout,
		workdir:    cfg.Workdir,
		env:        env,
		template:   template,
		words:      words,
		args:       append([]string(nil), cfg.Args...),
		outputMode: mode,
		outSuffix:  suffix,
		lookupEnv:  os.LookupEnv,
	}, nil
}

// Name implements generation.Generator.
func (g *Generator) Name() string { return "local" }

// Generate implements generation.Generator. Failures come back as "ERROR: ..." text.
func (g *Generator) Generate(ctx context.Context, prompt string) (text string) {
	defer generation.RecoverAsText(g.logger, &text, generation.ErrorText)

	out, err := g.generate(ctx, prompt)
	if err != nil {
		g.logger.ErrorContext(ctx, "local generation failed", "error", err)
		return generation.ErrorText(err)
	}
	return out
}

func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	workdir := g.resolveWorkdir(ctx)

	g.logger.InfoContext(ctx, "local process",
		"engine", g.engine,
		"model", g.model,
		"timeout", g.timeout.String(),
		"workdir", displayDir(workdir),
		"template", strings.ReplaceAll(generation.Truncate(g.template, templatePreview), "\n", " "))

	scratch, err := os.MkdirTemp(g.tempRoot, tempPattern)
	if err != nil {
		return "", &failure{kind: generation.ErrResource, msg: fmt.Sprintf("local adapter failed: %v", err)}
	}
	defer os.RemoveAll(scratch)

	promptPath := filepath.Join(scratch, promptFileName)
	if err := os.WriteFile(promptPath, []byte(prompt), 0o600); err != nil {
		return "", &failure{kind: generation.ErrResource, msg: fmt.Sprintf("local adapter failed: %v", err)}
	}
	outPath := filepath.Join(scratch, "output"+g.outSuffix)

	argv := g.render(promptPath, outPath)
	if len(argv) == 0 || argv[0] == "" {
		return "", &failure{kind: generation.ErrConfiguration, msg: "local.command_template rendered an empty command."}
	}
	g.logger.DebugContext(ctx, "local command", "command", redact.Args(argv))

	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = workdir
	cmd.Env = g.environ()
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		g.logger.ErrorContext(ctx, "local process timed out", "timeout", g.timeout.String())
		return "", &failure{kind: generation.ErrTimeout, msg: fmt.Sprintf("local process timeout after %ss.", formatSeconds(g.timeout))}
	}
	if ctx.Err() != nil {
		return "", &failure{kind: generation.ErrExecution, msg: fmt.Sprintf("local process interrupted: %v", ctx.Err())}
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return "", &failure{kind: generation.ErrLaunch, msg: fmt.Sprintf("failed to launch local process: %v", runErr)}
	}

	exitCode := cmd.ProcessState.ExitCode()
	g.logger.InfoContext(ctx, "local process finished",
		"exit", exitCode,
		"elapsed", elapsed.String(),
		"stdout_len", stdout.Len(),
		"stderr_len", stderr.Len())

	if exitErr != nil {
		excerpt := generation.Truncate(strings.TrimSpace(stderr.String()), stderrLimit)
		return "", &failure{kind: generation.ErrNonZeroExit, msg: fmt.Sprintf("local process exit %d. stderr: %s", exitCode, excerpt)}
	}

	if g.outputMode == OutputFile {
		data, err := os.ReadFile(outPath)
		if errors.Is(err, os.ErrNotExist) {
			g.logger.ErrorContext(ctx, "expected output file missing", "path", outPath)
			return "", &failure{kind: generation.ErrMissingOutput, msg: "expected output file not found (OUT_PATH)."}
		}
		if err != nil {
			return "", &failure{kind: generation.ErrResource, msg: fmt.Sprintf("failed to read OUT_PATH: %v", err)}
		}
		return string(data), nil
	}

	result := stdout.String()
	if strings.TrimSpace(result) == "" {
		if errText := strings.TrimSpace(stderr.String()); errText != "" {
			return "", &failure{kind: generation.ErrEmptyOutput, msg: "stdout empty. stderr: " + generation.Truncate(errText, stderrLimit)}
		}
		return "", &failure{kind: generation.ErrEmptyOutput, msg: "stdout empty."}
	}
	return result, nil
}

// render substitutes placeholders word by word. A word that is exactly
// ${ARGS} becomes the configured arguments as separate words; inside a larger
// word they are joined with spaces. Arguments are appended when the template
// never mentions ${ARGS}.
func (g *Generator) render(promptPath, outPath string) []string {
	replacer := strings.NewReplacer(
		PlaceholderPromptPath, promptPath,
		PlaceholderModel, g.model,
		PlaceholderOutPath, outPath,
		PlaceholderArgs, strings.Join(g.args, " "),
	)

	argv := make([]string, 0, len(g.words)+len(g.args))
	for _, word := range g.words {
		if word == PlaceholderArgs {
			argv = append(argv, g.args...)
			continue
		}
		argv = append(argv, replacer.Replace(word))
	}

	if !strings.Contains(g.template, PlaceholderArgs) {
		argv = append(argv, g.args...)
	}
	return argv
}

// environ returns the process environment with the configured overrides
// applied last. Override values may reference ${ENV:NAME}; unset names expand
// to the empty string.
func (g *Generator) environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(g.env))
	for k := range g.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+generation.ExpandEnvOrEmpty(g.env[k], g.lookupEnv))
	}
	return env
}

// resolveWorkdir returns the configured directory, or "" (the current
// directory) when none is configured or it does not exist.
func (g *Generator) resolveWorkdir(ctx context.Context) string {
	dir := strings.TrimSpace(g.workdir)
	if dir == "" {
		return ""
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		g.logger.WarnContext(ctx, "workdir does not exist, falling back to current process dir", "workdir", dir)
		return ""
	}
	return dir
}

func displayDir(dir string) string {
	if dir != "" {
		return dir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// failure carries the user-facing message of a terminal local failure while
// keeping its category reachable through errors.Is.
type failure struct {
	kind error
	msg  string
}

func (f *failure) Error() string { return f.msg }

func (f *failure) Unwrap() error { return f.kind }
