package tui

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/vkaudio/internal/challenge"
	"github.com/mmcdole/vkaudio/internal/domain"
	"github.com/mmcdole/vkaudio/internal/importer"
	"github.com/mmcdole/vkaudio/internal/search"
	"github.com/mmcdole/vkaudio/internal/service"
)

type recordingViewer struct {
	paths []string
	err   error
}

func (v *recordingViewer) Open(path string) error {
	v.paths = append(v.paths, path)
	return v.err
}

func typeInto(m tea.Model, text string) tea.Model {
	for _, r := range text {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestCaptchaModel_Submit(t *testing.T) {
	var m tea.Model = NewCaptchaModel(1, "/tmp/c.jpg", nil)
	assert.Contains(t, m.View(), "/tmp/c.jpg")

	m = typeInto(m, "x7k2")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, "x7k2", m.(CaptchaModel).Answer())
	assert.Empty(t, m.View())
}

func TestCaptchaModel_EscAbandons(t *testing.T) {
	var m tea.Model = NewCaptchaModel(2, "", nil)
	assert.Contains(t, m.View(), "attempt 2")

	m = typeInto(m, "abc")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Empty(t, m.(CaptchaModel).Answer())
}

func TestCaptchaModel_ShowsImageError(t *testing.T) {
	m := NewCaptchaModel(1, "", errors.New("no viewer"))
	assert.Contains(t, m.View(), "no viewer")
}

func TestLineSolver(t *testing.T) {
	var out bytes.Buffer
	viewer := &recordingViewer{}
	s := NewLineSolver(strings.NewReader("  abc \n"), &out, viewer, nil)
	s.dir = t.TempDir()

	key, err := s.Solve(context.Background(), challenge.Prompt{
		Challenge: domain.ChallengeContext{ID: "1"},
		Image:     []byte{0xff, 0xd8},
		Attempt:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", key)
	assert.Contains(t, out.String(), "Captcha required (attempt 1)")

	require.Len(t, viewer.paths, 1)
	_, statErr := os.Stat(viewer.paths[0])
	assert.True(t, os.IsNotExist(statErr), "image is removed after solving")
}

func TestLineSolver_EOFAbandons(t *testing.T) {
	s := NewLineSolver(strings.NewReader(""), &bytes.Buffer{}, nil, nil)
	key, err := s.Solve(context.Background(), challenge.Prompt{Attempt: 1})
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestLineSolver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewLineSolver(strings.NewReader("abc\n"), &bytes.Buffer{}, nil, nil)
	_, err := s.Solve(ctx, challenge.Prompt{Attempt: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShowImage_ViewerFailureIsNotFatal(t *testing.T) {
	viewer := &recordingViewer{err: errors.New("boom")}
	path, cleanup, err := showImage(t.TempDir(), challenge.Prompt{Image: []byte{1}}, viewer, discard())
	defer cleanup()

	assert.NotEmpty(t, path)
	assert.Error(t, err)
}

func TestShowImage_NoImage(t *testing.T) {
	viewer := &recordingViewer{}
	path, cleanup, err := showImage(t.TempDir(), challenge.Prompt{}, viewer, discard())
	cleanup()

	assert.Empty(t, path)
	assert.NoError(t, err)
	assert.Empty(t, viewer.paths)
}

func TestRenderOutcome(t *testing.T) {
	var buf bytes.Buffer
	RenderOutcome(&buf, service.Outcome{
		Results: make([]domain.RemoteResult, 3),
		Report:  importer.Report{Imported: 1, Duplicates: 1, Existing: 1},
	})
	assert.Contains(t, buf.String(), "3 results:")
	assert.Contains(t, buf.String(), "1 imported")
	assert.Contains(t, buf.String(), "1 duplicates")

	buf.Reset()
	RenderOutcome(&buf, service.Outcome{Notice: "No results found"})
	assert.Contains(t, buf.String(), "No results found")

	buf.Reset()
	RenderOutcome(&buf, service.Outcome{State: challenge.StateAbandoned})
	assert.Contains(t, buf.String(), "skipped")
}

func TestRenderRecords(t *testing.T) {
	var buf bytes.Buffer
	RenderRecords(&buf, []search.Result{{
		Record: &domain.Record{Artist: "Radiohead", Title: "Creep", Duration: 238},
		Label:  "Radiohead - Creep",
	}}, 80)
	assert.Contains(t, buf.String(), "3:58")
	assert.Contains(t, buf.String(), "Radiohead - Creep")

	buf.Reset()
	RenderRecords(&buf, nil, 80)
	assert.Contains(t, buf.String(), "No records.")
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLineSolver_CancelledWhileReading(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewLineSolver(pr, &bytes.Buffer{}, nil, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Solve(ctx, challenge.Prompt{Attempt: 1})
		errc <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Solve did not return after cancellation")
	}
}

func TestReadLine(t *testing.T) {
	line, err := ReadLine(context.Background(), bufio.NewReader(strings.NewReader(" https://x#access_token=t \nrest")))
	require.NoError(t, err)
	assert.Equal(t, "https://x#access_token=t", line)

	line, err = ReadLine(context.Background(), bufio.NewReader(strings.NewReader("no newline")))
	require.NoError(t, err)
	assert.Equal(t, "no newline", line)
}
