package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

const serviceScript = "scripts/face_service.py"

// FaceService implements Detector using a Python face-landmark subprocess.
//
// Protocol: after start the service prints one ready line
// {"ready":true,"landmarks":68}. Each request is a 4-byte big-endian length
// followed by a JPEG; each response is one JSON line.
type FaceService struct {
	config Config
	script string
	python string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	loaded atomic.Bool
	mu     sync.Mutex
}

// NewFaceService returns a detector backed by the face service script.
// The process is not started until Load.
func NewFaceService(config Config) (*FaceService, error) {
	script := findServiceScript()
	if script == "" {
		return nil, fmt.Errorf("%s not found", filepath.Base(serviceScript))
	}

	return &FaceService{
		config: config,
		script: script,
	}, nil
}

// Load starts the service and waits for it to report the model as ready.
// Cancelling ctx kills the service.
func (d *FaceService) Load(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded.Load() {
		return nil
	}

	python := d.python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	d.cmd = exec.Command(python, d.script,
		"--models", d.config.ModelDir,
		"--input-size", strconv.Itoa(d.config.InputSize),
		"--min-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start face service: %w", err)
	}

	reader := bufio.NewReader(stdout)
	d.stdin = stdin
	d.stdout = reader

	type readyResult struct {
		line string
		err  error
	}
	ready := make(chan readyResult, 1)
	go func() {
		line, err := reader.ReadString('\n')
		ready <- readyResult{line, err}
	}()

	select {
	case <-ctx.Done():
		d.kill()
		return ctx.Err()
	case r := <-ready:
		if r.err != nil {
			d.kill()
			return fmt.Errorf("read ready line: %w", r.err)
		}

		var msg struct {
			Ready     bool   `json:"ready"`
			Landmarks int    `json:"landmarks"`
			Error     string `json:"error"`
		}
		if err := json.Unmarshal([]byte(r.line), &msg); err != nil {
			d.kill()
			return fmt.Errorf("parse ready line: %w", err)
		}
		if !msg.Ready {
			d.kill()
			return fmt.Errorf("face service failed to load: %s", msg.Error)
		}
		if msg.Landmarks != NumLandmarks {
			d.kill()
			return fmt.Errorf("face service reports %d landmarks, want %d", msg.Landmarks, NumLandmarks)
		}
	}

	d.loaded.Store(true)
	return nil
}

func (d *FaceService) Loaded() bool {
	return d.loaded.Load()
}

// Detect sends frame to the service and returns the faces it found.
func (d *FaceService) Detect(frame *gocv.Mat) ([]Face, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded.Load() {
		return nil, ErrNotLoaded
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return parseResponse([]byte(line))
}

// Close shuts down the service process.
func (d *FaceService) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// kill stops a service that may not be reading its input.
func (d *FaceService) kill() {
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.shutdown()
}

func (d *FaceService) shutdown() error {
	d.loaded.Store(false)

	if d.cmd == nil {
		return nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

type jsonResponse struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Faces  []jsonFace `json:"faces"`
	Error  string     `json:"error"`
}

type jsonFace struct {
	Box    [4]float64 `json:"box"`
	Score  float64    `json:"score"`
	Points []Point2D  `json:"points"`
}

func parseResponse(line []byte) ([]Face, error) {
	var resp jsonResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("face service: %s", resp.Error)
	}

	source := Size{Width: resp.Width, Height: resp.Height}
	faces := make([]Face, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		faces = append(faces, Face{
			Box:    Box{X: f.Box[0], Y: f.Box[1], Width: f.Box[2], Height: f.Box[3]},
			Score:  f.Score,
			Points: f.Points,
			Source: source,
		})
	}

	return faces, nil
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		serviceScript,
		filepath.Join("..", serviceScript),
		filepath.Join(execDir, serviceScript),
		filepath.Join(os.Getenv("HOME"), ".facerecorder", serviceScript),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".facerecorder/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
