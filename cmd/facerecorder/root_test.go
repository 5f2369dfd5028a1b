package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/.facerecorder", filepath.Join(home, ".facerecorder")},
		{"/var/lib/facerecorder", "/var/lib/facerecorder"},
		{"relative/dir", "relative/dir"},
		{"~other", "~other"},
	}

	for _, tt := range tests {
		got, err := expandHome(tt.in)
		if err != nil {
			t.Fatalf("expandHome(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBrowserURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080/"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000/"},
	}

	for _, tt := range tests {
		if got := browserURL(tt.addr); got != tt.want {
			t.Errorf("browserURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestCommands_Registered(t *testing.T) {
	want := map[string]bool{"serve": false, "record": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}

	if f := recordCmd.Flags().Lookup("output"); f == nil || f.DefValue != "face-recording.webm" {
		t.Errorf("record --output default = %v, want face-recording.webm", f)
	}
	if f := serveCmd.Flags().Lookup("addr"); f == nil || f.DefValue != ":8080" {
		t.Errorf("serve --addr default = %v, want :8080", f)
	}
}
