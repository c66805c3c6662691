//go:build darwin

package hotkey

/*
#cgo LDFLAGS: -framework Carbon
#include <Carbon/Carbon.h>

extern void goHotkeyCallback(int pressed);

static OSStatus hotkeyHandler(EventHandlerCallRef nextHandler, EventRef theEvent, void* userData) {
    UInt32 eventKind = GetEventKind(theEvent);
    goHotkeyCallback(eventKind == kEventHotKeyPressed ? 1 : 0);
    return noErr;
}

static EventHotKeyRef hotKeyRef = NULL;

static int registerHotkey(UInt32 keyCode, UInt32 modifiers) {
    static int installed = 0;
    if (!installed) {
        EventTypeSpec eventTypes[2];
        eventTypes[0].eventClass = kEventClassKeyboard;
        eventTypes[0].eventKind = kEventHotKeyPressed;
        eventTypes[1].eventClass = kEventClassKeyboard;
        eventTypes[1].eventKind = kEventHotKeyReleased;
        InstallApplicationEventHandler(NewEventHandlerUPP(hotkeyHandler), 2, eventTypes, NULL, NULL);
        installed = 1;
    }

    EventHotKeyID hotKeyID;
    hotKeyID.signature = 'lprs';
    hotKeyID.id = 1;

    OSStatus status = RegisterEventHotKey(keyCode, modifiers, hotKeyID, GetApplicationEventTarget(), 0, &hotKeyRef);
    return (status == noErr) ? 1 : 0;
}

static void unregisterHotkey() {
    if (hotKeyRef != NULL) {
        UnregisterEventHotKey(hotKeyRef);
        hotKeyRef = NULL;
    }
}
*/
import "C"

import (
	"fmt"
	"strings"
	"sync"
)

// Carbon virtual key codes for the keys worth binding to the transport.
var carbonKeys = map[string]uint32{
	"space":  49,
	"return": 36,
	"tab":    48,
	"f1":     122,
	"f2":     120,
	"f3":     99,
	"f4":     118,
	"f5":     96,
	"f6":     97,
	"f7":     98,
	"f8":     100,
}

type darwinManager struct {
	callback func(bool)
	accel    string
}

var (
	globalMu      sync.Mutex
	globalManager *darwinManager
)

// New creates a new macOS hotkey manager using Carbon. Carbon allows one
// registered hotkey per manager here.
func New() (Manager, error) {
	return &darwinManager{}, nil
}

//export goHotkeyCallback
func goHotkeyCallback(pressed C.int) {
	globalMu.Lock()
	m := globalManager
	globalMu.Unlock()
	if m != nil && m.callback != nil {
		m.callback(pressed == 1)
	}
}

func carbonModifiers(mods int) uint32 {
	var m uint32
	if mods&ModSuper != 0 {
		m |= 0x100
	}
	if mods&ModShift != 0 {
		m |= 0x200
	}
	if mods&ModAlt != 0 {
		m |= 0x800
	}
	if mods&ModCtrl != 0 {
		m |= 0x1000
	}
	return m
}

func (m *darwinManager) Register(accel string, callback func(pressed bool)) error {
	a, err := ParseAccelerator(accel)
	if err != nil {
		return err
	}
	keyCode, ok := carbonKeys[strings.ToLower(a.Key)]
	if !ok {
		return fmt.Errorf("unsupported hotkey key %q", a.Key)
	}

	globalMu.Lock()
	m.callback = callback
	m.accel = accel
	globalManager = m
	globalMu.Unlock()

	if C.registerHotkey(C.UInt32(keyCode), C.UInt32(carbonModifiers(a.Modifiers))) == 0 {
		return fmt.Errorf("failed to register hotkey %q", accel)
	}
	return nil
}

func (m *darwinManager) Unregister(accel string) error {
	if accel != m.accel {
		return fmt.Errorf("hotkey %q not registered", accel)
	}
	C.unregisterHotkey()
	m.accel = ""
	return nil
}

func (m *darwinManager) Close() error {
	C.unregisterHotkey()
	globalMu.Lock()
	globalManager = nil
	globalMu.Unlock()
	return nil
}
