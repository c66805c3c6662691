//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation -framework Cocoa
#import <AVFoundation/AVFoundation.h>
#import <Cocoa/Cocoa.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}

int checkAccessibilityPermission() {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: @YES};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

const (
	permissionNotDetermined = 0
	permissionRestricted    = 1
	permissionDenied        = 2
	permissionAuthorized    = 3
)

// EnsureMicrophone checks microphone access and triggers the system dialog
// when the user has not decided yet. Loop recording needs the input device.
func EnsureMicrophone() error {
	switch int(C.checkMicrophonePermission()) {
	case permissionAuthorized:
		return nil
	case permissionNotDetermined:
		C.requestMicrophonePermission()
		return ErrMicrophone
	default:
		return ErrMicrophone
	}
}

// CheckAccessibility reports whether global hotkeys may be registered. It
// prompts the user when access is missing.
func CheckAccessibility() bool {
	return C.checkAccessibilityPermission() == 1
}
