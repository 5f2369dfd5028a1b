// Package main is a recording hook that shows a desktop notification when
// a recording starts or finishes. It uses osascript on macOS and
// notify-send elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ayusman/facerecorder/internal/hook"
)

const title = "Face Recorder"

func main() {
	var event hook.Event
	if err := json.NewDecoder(os.Stdin).Decode(&event); err != nil {
		writeResponse(fmt.Errorf("failed to decode event: %w", err))
		return
	}

	text, ok := message(&event)
	if !ok {
		writeResponse(nil)
		return
	}

	writeResponse(notify(text))
}

// message returns the notification text for event, or false when the
// event is not one this hook reports.
func message(event *hook.Event) (string, bool) {
	switch event.Type {
	case hook.EventRecordingStarted:
		return "Recording started", true
	case hook.EventRecordingFinished:
		if event.Recording == nil {
			return "Recording saved", true
		}
		r := event.Recording
		return fmt.Sprintf("Recording saved: %s, %s",
			humanize.Bytes(uint64(r.Size)),
			r.StoppedAt.Sub(r.StartedAt).Round(100*time.Millisecond)), true
	}
	return "", false
}

func notify(text string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		script := fmt.Sprintf("display notification %q with title %q", text, title)
		cmd = exec.Command("osascript", "-e", script)
	} else {
		cmd = exec.Command("notify-send", title, text)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeResponse(err error) {
	resp := hook.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
