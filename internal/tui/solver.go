package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/mmcdole/vkaudio/internal/challenge"
)

// Viewer opens a saved captcha image for the user
type Viewer interface {
	Open(path string) error
}

// NewSolver returns the interactive prompt when in and out are terminals,
// and the plain line prompt otherwise
func NewSolver(in, out *os.File, viewer Viewer, logger *slog.Logger) challenge.Solver {
	if term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd())) {
		return NewPromptSolver(in, out, viewer, logger)
	}
	return NewLineSolver(in, out, viewer, logger)
}

// PromptSolver asks for captcha answers with a bubbletea prompt
type PromptSolver struct {
	in     io.Reader
	out    io.Writer
	viewer Viewer
	dir    string // where images are saved, empty for the OS temp dir
	logger *slog.Logger
}

// NewPromptSolver creates a new interactive solver
func NewPromptSolver(in io.Reader, out io.Writer, viewer Viewer, logger *slog.Logger) *PromptSolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &PromptSolver{in: in, out: out, viewer: viewer, logger: logger}
}

func (s *PromptSolver) Solve(ctx context.Context, p challenge.Prompt) (string, error) {
	path, cleanup, imgErr := showImage(s.dir, p, s.viewer, s.logger)
	defer cleanup()

	prog := tea.NewProgram(
		NewCaptchaModel(p.Attempt, path, imgErr),
		tea.WithContext(ctx),
		tea.WithInput(s.in),
		tea.WithOutput(s.out),
	)

	final, err := prog.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("captcha prompt failed: %w", err)
	}

	return strings.TrimSpace(final.(CaptchaModel).Answer()), nil
}

// LineSolver reads captcha answers one line at a time
type LineSolver struct {
	in     *bufio.Reader
	out    io.Writer
	viewer Viewer
	dir    string
	logger *slog.Logger
}

// NewLineSolver creates a solver for non-interactive input
func NewLineSolver(in io.Reader, out io.Writer, viewer Viewer, logger *slog.Logger) *LineSolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineSolver{in: bufio.NewReader(in), out: out, viewer: viewer, logger: logger}
}

func (s *LineSolver) Solve(ctx context.Context, p challenge.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, cleanup, imgErr := showImage(s.dir, p, s.viewer, s.logger)
	defer cleanup()

	fmt.Fprintf(s.out, "Captcha required (attempt %d)\n", p.Attempt)
	switch {
	case imgErr != nil:
		fmt.Fprintf(s.out, "image unavailable: %v\n", imgErr)
	case path != "":
		fmt.Fprintf(s.out, "image: %s\n", path)
	}
	fmt.Fprint(s.out, "answer (empty to skip): ")

	line, err := ReadLine(ctx, s.in)
	if err != nil {
		return "", fmt.Errorf("failed to read captcha answer: %w", err)
	}
	return line, nil
}

// ReadLine reads one trimmed line from r, returning early with the context's
// error when ctx is done. EOF ends the line. After cancellation the pending
// read is abandoned, so r must not be read again.
func ReadLine(ctx context.Context, r *bufio.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- result{strings.TrimSpace(line), err}
	}()

	select {
	case res := <-done:
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// showImage saves the captcha image and hands it to the viewer. The returned
// error is for display only; a missing image never fails the prompt.
func showImage(dir string, p challenge.Prompt, viewer Viewer, logger *slog.Logger) (string, func(), error) {
	noop := func() {}
	if len(p.Image) == 0 {
		return "", noop, nil
	}

	f, err := os.CreateTemp(dir, "vkaudio-captcha-*.jpg")
	if err != nil {
		return "", noop, err
	}
	path := f.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil {
			logger.Debug("failed to remove captcha image", "path", path, "error", err)
		}
	}

	if _, err := f.Write(p.Image); err != nil {
		f.Close()
		return "", cleanup, err
	}
	if err := f.Close(); err != nil {
		return "", cleanup, err
	}

	if viewer != nil {
		if err := viewer.Open(path); err != nil {
			logger.Warn("failed to open captcha image", "path", path, "error", err)
			return path, cleanup, fmt.Errorf("open %s: %w", filepath.Base(path), err)
		}
	}
	return path, cleanup, nil
}
