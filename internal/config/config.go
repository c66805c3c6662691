package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Startup holds the options the process was launched with. It is built once
// from the command line and never changed afterwards.
type Startup struct {
	Restore  bool
	Headless bool
	Driver   string
	Debug    bool
	LogPath  string

	// Optional remote command inputs; empty disables them.
	NATSURL     string
	NATSSubject string
	OSCAddr     string
}

// Session is the transport state saved on shutdown and restored with --restore.
type Session struct {
	Tempo           float64 `json:"tempo"`
	BeatsPerBar     int     `json:"beats_per_bar"`
	MetronomeOn     bool    `json:"metronome_on"`
	MetronomeVolume float32 `json:"metronome_volume"`
}

// DefaultSession returns the state a fresh engine starts in.
func DefaultSession() Session {
	return Session{
		Tempo:           120,
		BeatsPerBar:     4,
		MetronomeOn:     true,
		MetronomeVolume: 0.8,
	}
}

// LoadSession reads the last saved session. A missing file yields the default
// session without error.
func LoadSession() (Session, error) {
	return loadSessionFrom(sessionPath())
}

// Save writes the session to disk
func (s Session) Save() error {
	return s.saveTo(sessionPath())
}

func loadSessionFrom(path string) (Session, error) {
	s := DefaultSession()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read session: %w", err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return DefaultSession(), fmt.Errorf("failed to parse session %s: %w", path, err)
	}

	return s, nil
}

func (s Session) saveTo(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temp file first so a crash never leaves half a session behind
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// sessionPath returns the platform-specific session file path
func sessionPath() string {
	return filepath.Join(dataDir(), "loopers", "session.json")
}

func dataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		return os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return xdg
		}
		return os.Getenv("HOME") + "/.local/share"
	}
}
