package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/abhisek/brainbrew/internal/tutor"
)

// AudioSource yields raw 16-bit little-endian mono PCM.
type AudioSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// CommandSource records from the default microphone by running an
// external recorder and reading its stdout.
type CommandSource struct {
	Name string
	Args []string
}

// DetectCommandSource returns a recorder available on this system: sox's
// rec, or ALSA's arecord. It returns tutor.ErrDictationUnsupported when
// neither is installed.
func DetectCommandSource(sampleRate int32) (*CommandSource, error) {
	rate := strconv.Itoa(int(sampleRate))
	candidates := []CommandSource{
		{Name: "rec", Args: []string{"-q", "-t", "raw", "-b", "16", "-e", "signed-integer", "-c", "1", "-r", rate, "-"}},
		{Name: "arecord", Args: []string{"-q", "-f", "S16_LE", "-c", "1", "-r", rate, "-t", "raw"}},
	}
	for _, c := range candidates {
		if _, err := exec.LookPath(c.Name); err == nil {
			return &c, nil
		}
	}
	return nil, tutor.ErrDictationUnsupported
}

func (c *CommandSource) Open(ctx context.Context) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("recorder pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, tutor.ErrDictationUnsupported
		}
		return nil, fmt.Errorf("start recorder: %w", err)
	}
	return &commandReader{ReadCloser: out, cmd: cmd, stderr: stderr}, nil
}

type commandReader struct {
	io.ReadCloser
	cmd    *exec.Cmd
	stderr *lockedBuffer
}

// lockedBuffer collects recorder stderr written from the exec goroutine.
type lockedBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

// Read maps a recorder that exits complaining about access into
// tutor.ErrMicrophoneDenied.
func (r *commandReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if errors.Is(err, io.EOF) && deniedMessage(r.stderr.String()) {
		return n, tutor.ErrMicrophoneDenied
	}
	return n, err
}

func (r *commandReader) Close() error {
	_ = r.ReadCloser.Close()
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	_ = r.cmd.Wait()
	return nil
}

func deniedMessage(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "permission denied") || strings.Contains(s, "access denied")
}
