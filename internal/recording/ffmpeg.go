package recording

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"

	"github.com/ayusman/facerecorder/internal/render"
)

// FFmpegConfig configures the ffmpeg encoder process.
type FFmpegConfig struct {
	// Binary is the ffmpeg executable name or path.
	Binary string
	// FPS is the input frame rate, normally the render loop cadence.
	FPS int
	// ChunkSize bounds the size of each emitted fragment.
	ChunkSize int
}

// DefaultFFmpegConfig matches the default 100ms render cadence.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		Binary:    "ffmpeg",
		FPS:       10,
		ChunkSize: 64 * 1024,
	}
}

// FFmpegFactory returns a Factory producing FFmpegRecorders.
func FFmpegFactory(config FFmpegConfig) Factory {
	return func(stream *render.Stream) (Recorder, error) {
		return NewFFmpegRecorder(stream, config)
	}
}

// FFmpegRecorder encodes a stream of JPEG frames into WebM by piping them
// through an ffmpeg process. Every read from ffmpeg's stdout is a fragment.
type FFmpegRecorder struct {
	config FFmpegConfig
	binary string
	stream *render.Stream
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr bytes.Buffer

	onData func(Fragment)
	onStop func()

	mu       sync.Mutex
	started  bool
	stopping bool
}

// NewFFmpegRecorder checks that ffmpeg is available and binds it to stream.
func NewFFmpegRecorder(stream *render.Stream, config FFmpegConfig) (*FFmpegRecorder, error) {
	if config.Binary == "" {
		config.Binary = "ffmpeg"
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFFmpegConfig().FPS
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultFFmpegConfig().ChunkSize
	}

	binary, err := exec.LookPath(config.Binary)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", config.Binary, err)
	}

	return &FFmpegRecorder{
		config: config,
		binary: binary,
		stream: stream,
		onData: func(Fragment) {},
		onStop: func() {},
	}, nil
}

func (r *FFmpegRecorder) OnDataAvailable(fn func(Fragment)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onData = fn
}

func (r *FFmpegRecorder) OnStop(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStop = fn
}

// Args returns the ffmpeg command line arguments. Frames are stamped with
// their arrival time, so skipped or dropped paints do not shorten the video.
func (r *FFmpegRecorder) Args() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "image2pipe", "-c:v", "mjpeg",
		"-framerate", strconv.Itoa(r.config.FPS),
		"-use_wallclock_as_timestamps", "1",
		"-i", "pipe:0",
		"-fps_mode", "passthrough",
		"-c:v", "libvpx", "-deadline", "realtime", "-b:v", "1M",
		"-f", "webm", "pipe:1",
	}
}

// Start launches ffmpeg and begins feeding it frames.
func (r *FFmpegRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	r.cmd = exec.Command(r.binary, r.Args()...)
	r.cmd.Stderr = &r.stderr

	stdin, err := r.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := r.cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	r.stdin = stdin
	r.stdout = stdout
	r.started = true

	go r.feed()
	go r.drain(r.onData, r.onStop)

	return nil
}

// Stop ends the input stream. ffmpeg flushes the remaining output and exits,
// after which OnStop fires.
func (r *FFmpegRecorder) Stop() error {
	r.mu.Lock()
	if !r.started || r.stopping {
		r.mu.Unlock()
		return nil
	}
	r.stopping = true
	r.mu.Unlock()

	r.stream.Close()
	return nil
}

func (r *FFmpegRecorder) feed() {
	defer r.stdin.Close()

	for data := range r.stream.Frames() {
		if _, err := r.stdin.Write(data); err != nil {
			log.Printf("ffmpeg stdin closed: %v", err)
			// Drain until the stream is closed.
			for range r.stream.Frames() {
			}
			return
		}
	}
}

func (r *FFmpegRecorder) drain(onData func(Fragment), onStop func()) {
	buf := make([]byte, r.config.ChunkSize)
	for {
		n, err := r.stdout.Read(buf)
		if n > 0 {
			onData(append(Fragment(nil), buf[:n]...))
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("ffmpeg stdout read failed: %v", err)
			}
			break
		}
	}

	if err := r.cmd.Wait(); err != nil {
		log.Printf("ffmpeg exited: %v: %s", err, bytes.TrimSpace(r.stderr.Bytes()))
	}

	onStop()
}
