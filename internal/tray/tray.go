// Package tray provides a system tray menu for starting and stopping recordings.
package tray

import (
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onStart func()
	onStop  func()
	onOpen  func()
	onQuit  func()

	recording bool
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuStart *systray.MenuItem
	menuStop  *systray.MenuItem
	menuLast  *systray.MenuItem
}

// New creates an idle Tray.
func New() *Tray {
	return &Tray{}
}

// OnStart sets the callback for the "Start Recording" item.
func (t *Tray) OnStart(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStart = fn
}

// OnStop sets the callback for the "Stop Recording" item.
func (t *Tray) OnStop(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// OnOpen sets the callback for the "Open in Browser..." item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, making Run return. It is safe to call more than once.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("FaceRec")
	systray.SetTooltip("Face Recorder")

	t.mu.Lock()
	t.menuStart = systray.AddMenuItem("Start Recording", "Start recording the landmark view")
	t.menuStop = systray.AddMenuItem("Stop Recording", "Stop and keep the recording")
	systray.AddSeparator()

	t.menuLast = systray.AddMenuItem("Last: none", "Last finished recording")
	t.menuLast.Disable()
	systray.AddSeparator()
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem("Open in Browser...", "Open the recorder UI")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Face Recorder")

	t.mu.RLock()
	t.syncMenu()
	t.mu.RUnlock()

	go func() {
		for {
			select {
			case <-t.menuStart.ClickedCh:
				t.handle(t.startCallback())
			case <-t.menuStop.ClickedCh:
				t.handle(t.stopCallback())
			case <-menuOpen.ClickedCh:
				t.handle(t.openCallback())
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) startCallback() func() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onStart
}

func (t *Tray) stopCallback() func() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onStop
}

func (t *Tray) openCallback() func() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onOpen
}

// handle calls the callback outside the lock.
func (t *Tray) handle(callback func()) {
	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetRecording shows exactly one of the start and stop items.
func (t *Tray) SetRecording(recording bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recording = recording
	t.syncMenu()
}

// syncMenu must be called with t.mu held.
func (t *Tray) syncMenu() {
	if t.menuStart == nil || t.menuStop == nil {
		return
	}
	if t.recording {
		t.menuStart.Hide()
		t.menuStop.Show()
	} else {
		t.menuStop.Hide()
		t.menuStart.Show()
	}
}

// SetLastRecording updates the last recording line in the menu.
func (t *Tray) SetLastRecording(size int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLast != nil {
		t.menuLast.SetTitle(LastRecordingTitle(size))
	}
}

// LastRecordingTitle formats the menu line for a recording of size bytes.
func LastRecordingTitle(size int) string {
	if size <= 0 {
		return "Last: none"
	}
	return "Last: " + humanize.Bytes(uint64(size))
}

// IsRecording returns the state last set with SetRecording.
func (t *Tray) IsRecording() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.recording
}
