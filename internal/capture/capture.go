// Package capture turns a camera or a video file into a stream of JPEG frames
// by running ffmpeg with an MJPEG image2pipe output.
package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
)

const megabyte = 1024 * 1024

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// Camera defaults of the monitor command.
const (
	DefaultDevice = "/dev/video0"
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 30
)

// SplitJpeg is a bufio.SplitFunc yielding complete JPEG images delimited by
// their SOI and EOI markers. Bytes outside a frame are skipped.
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], jpegEOI)
	if end == -1 {
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// CameraArgs reads a V4L2 device at the given size and rate.
func CameraArgs(device string, width, height, fps int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2",
		"-framerate", strconv.Itoa(fps),
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-i", device,
		"-f", "image2pipe", "-vcodec", "mjpeg", "-",
	}
}

func FileArgs(path string) []string {
	return []string{"-hide_banner", "-loglevel", "error", "-i", path, "-f", "image2pipe", "-vcodec", "mjpeg", "-"}
}

// Source is a running ffmpeg process.
type Source struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	cancel  context.CancelFunc
	stopped atomic.Bool
}

// Start launches ffmpeg with args. The process is killed when ctx ends or
// Stop is called.
func Start(ctx context.Context, args []string) (*Source, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return &Source{cmd: cmd, stdout: stdout, stderr: stderr, cancel: cancel}, nil
}

func (s *Source) Reader() io.Reader { return s.stdout }

// Stop kills ffmpeg so that a Wait after abandoning Reader cannot block on a
// full pipe.
func (s *Source) Stop() {
	s.stopped.Store(true)
	s.cancel()
}

// Wait reaps ffmpeg, attaching its stderr to a failure. A process ended by
// Stop is not a failure.
func (s *Source) Wait() error {
	err := s.cmd.Wait()
	s.cancel()
	if err != nil && !s.stopped.Load() {
		if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// Frames scans r for JPEG frames and delivers copies on the returned channel,
// which is closed at EOF, on a read error or when ctx ends. The error channel
// then yields the scan error (nil at EOF).
func Frames(ctx context.Context, r io.Reader) (<-chan []byte, <-chan error) {
	frames := make(chan []byte)
	errc := make(chan error, 1)

	go func() {
		defer close(frames)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, megabyte), 64*megabyte)
		scanner.Split(SplitJpeg)

		for scanner.Scan() {
			frame := append([]byte(nil), scanner.Bytes()...)
			select {
			case frames <- frame:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		errc <- scanner.Err()
	}()

	return frames, errc
}

// Info describes a video file.
type Info struct {
	Frames int
	FPS    float64
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ffprobeOutput struct {
	Streams []struct {
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
		AvgFrameRate  string `json:"avg_frame_rate"`
		RFrameRate    string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Probe asks ffprobe for the frame count and rate of the first video stream.
// When the container has no frame count, packets are counted instead.
func Probe(ctx context.Context, path string) (Info, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return Info{}, fmt.Errorf("ffprobe not found: %w", err)
	}

	out, err := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=nb_frames,avg_frame_rate,r_frame_rate", "-of", "json", path).Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	info, err := parseProbe(out)
	if err != nil {
		return Info{}, err
	}
	if info.Frames > 0 {
		return info, nil
	}

	out, err = exec.CommandContext(ctx, "ffprobe", "-v", "error", "-select_streams", "v:0", "-count_packets",
		"-show_entries", "stream=nb_read_packets", "-of", "json", path).Output()
	if err != nil {
		return info, fmt.Errorf("ffprobe count %s: %w", path, err)
	}
	var res ffprobeOutput
	if err := json.Unmarshal(out, &res); err == nil && len(res.Streams) > 0 {
		info.Frames, _ = strconv.Atoi(res.Streams[0].NbReadPackets)
	}
	return info, nil
}

func parseProbe(out []byte) (Info, error) {
	var res ffprobeOutput
	if err := json.Unmarshal(out, &res); err != nil {
		return Info{}, fmt.Errorf("ffprobe output: %w", err)
	}
	if len(res.Streams) == 0 {
		return Info{}, fmt.Errorf("no video stream")
	}

	st := res.Streams[0]
	info := Info{}
	info.Frames, _ = strconv.Atoi(st.NbFrames)
	info.FPS = ParseRate(st.AvgFrameRate)
	if info.FPS == 0 {
		info.FPS = ParseRate(st.RFrameRate)
	}
	return info, nil
}

// ParseRate parses ffprobe rates such as "30000/1001" or "25". It returns 0
// for anything unusable.
func ParseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || n <= 0 {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d <= 0 {
		return 0
	}
	return n / d
}
