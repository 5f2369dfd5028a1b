// Package hook runs external executables in response to recording events.
//
// A hook lives in its own directory under the hooks directory and is
// described by a hook.json manifest. The event is written to the hook's
// stdin as JSON and the hook answers with a JSON Response on stdout.
package hook

import "time"

// Event types delivered to hooks.
const (
	EventRecordingStarted  = "recording.started"
	EventRecordingFinished = "recording.finished"
)

// Manifest describes a hook and the events it wants.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Events      []string `json:"events"`
}

// Wants reports whether the manifest subscribes to eventType.
// An empty event list subscribes to everything.
func (m Manifest) Wants(eventType string) bool {
	if len(m.Events) == 0 {
		return true
	}
	for _, e := range m.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// Recording is the recording summary carried by an event.
type Recording struct {
	ID           string    `json:"id"`
	MediaType    string    `json:"media_type,omitempty"`
	Size         int       `json:"size,omitempty"`
	Fragments    int       `json:"fragments,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	StoppedAt    time.Time `json:"stopped_at"`
	DownloadPath string    `json:"download_path,omitempty"`
}

// Event is sent to a hook on stdin.
type Event struct {
	Type      string     `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
	Recording *Recording `json:"recording,omitempty"`
}

// Response is read from a hook's stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}
