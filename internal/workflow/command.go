package workflow

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"blurry/internal/config"
	"blurry/internal/detect"
	"blurry/internal/logging"
	"blurry/internal/services"
	"blurry/internal/textutil"
)

var commandContext = exec.CommandContext

// CommandProcessor delegates a whole video to an external redaction command.
// Arguments may contain {input}, {output}, {threshold} and {model}. Lines on
// stdout of the form {"frame":n,"total":m} are reported as progress; any
// other output is logged at debug level.
type CommandProcessor struct {
	Command   string
	Args      []string
	Threshold float64
	ModelPath string
	Logger    *slog.Logger
}

// NewCommandProcessor builds a processor from the execution section.
func NewCommandProcessor(cfg *config.Config, logger *slog.Logger) (*CommandProcessor, error) {
	if strings.TrimSpace(cfg.Execution.Command) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "execution", "command", "execution.command is required in subprocess mode", nil)
	}
	if err := detect.ValidateThreshold(cfg.Detector.Threshold); err != nil {
		return nil, err
	}
	return &CommandProcessor{
		Command:   cfg.Execution.Command,
		Args:      append([]string(nil), cfg.Execution.Args...),
		Threshold: cfg.Detector.Threshold,
		ModelPath: cfg.Detector.ModelPath,
		Logger:    logging.NewComponentLogger(logger, "redact-command"),
	}, nil
}

type commandProgress struct {
	Frame *int64 `json:"frame"`
	Total int64  `json:"total"`
}

// Process runs the command and waits for it. The process is started detached
// from ctx; a cancel sends it an interrupt so it can finalize its output, and
// the result is reported as ErrCancelled.
func (c *CommandProcessor) Process(ctx context.Context, job Job) error {
	logger := logging.WithContext(ctx, c.Logger)
	args := c.expandArgs(job)

	cmd := commandContext(context.WithoutCancel(ctx), c.Command, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrProcessExit, "redact", "stdout pipe", c.Command, err)
	}
	stderr := textutil.NewTailBuffer(16 * 1024)
	cmd.Stderr = stderr

	logger.Debug("starting redaction command",
		logging.String("command", c.Command),
		logging.String("args", strings.Join(args, " ")),
	)
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrProcessExit, "redact", "start command", c.Command, err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			if cmd.Process != nil {
				_ = cmd.Process.Signal(os.Interrupt)
			}
		case <-stop:
		}
	}()

	var total int64
	totalSent := false
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg commandProgress
		if !strings.HasPrefix(line, "{") || json.Unmarshal([]byte(line), &msg) != nil || msg.Frame == nil {
			logger.Debug("redaction command output", logging.String("line", line))
			continue
		}
		if msg.Total > 0 && (!totalSent || msg.Total != total) {
			total = msg.Total
			totalSent = true
			job.frameTotal(total)
		}
		job.frameDone(*msg.Frame, total)
	}
	if err := scanner.Err(); err != nil {
		logger.Debug("reading command output failed", logging.Error(err))
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return services.Wrap(services.ErrCancelled, "redact", "command", "interrupted", ctx.Err())
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return services.Wrap(services.ErrProcessExit, "redact", "command",
				fmt.Sprintf("exit code %d", exitErr.ExitCode()),
				&services.ExitError{Command: c.Command, ExitCode: exitErr.ExitCode(), Stderr: stderr.Summary(3)})
		}
		return services.Wrap(services.ErrProcessExit, "redact", "command", c.Command, waitErr)
	}
	return nil
}

func (c *CommandProcessor) expandArgs(job Job) []string {
	replacer := strings.NewReplacer(
		"{input}", job.SourcePath,
		"{output}", job.OutputPath,
		"{threshold}", strconv.FormatFloat(c.Threshold, 'g', -1, 64),
		"{model}", c.ModelPath,
	)
	out := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		out = append(out, replacer.Replace(arg))
	}
	return out
}
