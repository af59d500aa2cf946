package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/internal/drowsiness/drowsinesstest"
	"AlertMate/go-backend/internal/services"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closedEyes struct{}

func (closedEyes) Infer(context.Context, []byte) (drowsiness.Heatmaps, error) {
	return drowsinesstest.Closed(), nil
}

func TestProcessFrames_JSONLines(t *testing.T) {
	runner := services.NewRunner(closedEyes{}, services.NewMetrics(), nil, nil)
	stream := services.NewStream("test", drowsiness.DefaultConfig())

	var video bytes.Buffer
	frame := drowsinesstest.JPEG(64, 64)
	// 1.5 s at 30 fps: the counter passes 15 at frame 30
	for i := 0; i < 45; i++ {
		video.Write(frame)
	}
	// a truncated tail frame never completes and is skipped
	video.Write([]byte{0xFF, 0xD8, 0x00})

	var stdout bytes.Buffer
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	clock := func(i int) time.Time { return start.Add(time.Duration(i) * time.Second / 30) }

	err := processFrames(context.Background(), runner, stream, &video, newLineWriter(&stdout), clock)
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(&stdout)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], `"reason":"alert"`)
	assert.Contains(t, lines[len(lines)-1], `"reason":"eyes_closed"`)
	assert.Contains(t, lines[len(lines)-1], `"isDrowsy":true`)
	assert.EqualValues(t, 45, runner.Metrics.GetTotalFrames())
}

func TestProcessFrames_ErrorLines(t *testing.T) {
	runner := services.NewRunner(closedEyes{}, services.NewMetrics(), nil, nil)
	stream := services.NewStream("test", drowsiness.DefaultConfig())

	// SOI/EOI framed but not a decodable JPEG
	video := bytes.NewReader([]byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9})

	var stdout bytes.Buffer
	err := processFrames(context.Background(), runner, stream, video, newLineWriter(&stdout), func(int) time.Time { return time.Now() })
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout.String(), `{"error":"invalid frame`))
}

func TestLineWriter_Status(t *testing.T) {
	var buf bytes.Buffer
	lw := newLineWriter(&buf)
	require.NoError(t, lw.status("initializing"))
	require.NoError(t, lw.status("stopped"))
	assert.Equal(t, "{\"status\":\"initializing\"}\n{\"status\":\"stopped\"}\n", buf.String())
}

func TestReplayClock(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	bar := progressbar.NewOptions(-1, progressbar.OptionSetVisibility(false))
	clock := replayClock(start, 25, bar)

	assert.Equal(t, start, clock(0))
	assert.Equal(t, start.Add(40*time.Millisecond), clock(1))
	assert.Equal(t, start.Add(2*time.Second), clock(50))
}

func TestFlagGetter_OnlyChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	detectionFlags(cmd)
	require.NoError(t, cmd.Flags().Set("earThreshold", "0.3"))

	g := flagGetter{cmd}
	assert.Equal(t, "0.3", g.Get("earThreshold"))
	assert.Empty(t, g.Get("marThreshold"))
	assert.Empty(t, g.Get("missing"))
}

// pipeSource writes frames forever, like a live camera, until its reader is
// closed.
type pipeSource struct {
	r    *io.PipeReader
	done chan struct{}
}

func newPipeSource(frame []byte) *pipeSource {
	r, w := io.Pipe()
	src := &pipeSource{r: r, done: make(chan struct{})}
	go func() {
		defer close(src.done)
		for {
			if _, err := w.Write(frame); err != nil {
				return
			}
		}
	}()
	return src
}

func (p *pipeSource) Reader() io.Reader { return p.r }
func (p *pipeSource) Stop()             { p.r.Close() }
func (p *pipeSource) Wait() error       { <-p.done; return nil }

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestDrain_OutputFailureStopsSource(t *testing.T) {
	runner := services.NewRunner(closedEyes{}, services.NewMetrics(), nil, nil)
	stream := services.NewStream("test", drowsiness.DefaultConfig())
	src := newPipeSource(drowsinesstest.JPEG(64, 64))

	errc := make(chan error, 1)
	go func() {
		errc <- drain(context.Background(), runner, stream, src, newLineWriter(brokenWriter{}), func(int) time.Time { return time.Now() })
	}()

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stdout closed")
	case <-time.After(5 * time.Second):
		t.Fatal("drain blocked on a source nobody reads")
	}
}
