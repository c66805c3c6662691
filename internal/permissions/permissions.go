// Package permissions wraps the macOS privacy checks the looper depends on.
package permissions

import "errors"

// ErrMicrophone is returned when the system has not granted microphone access.
var ErrMicrophone = errors.New("microphone permission not granted; allow it in System Settings → Privacy & Security → Microphone")
