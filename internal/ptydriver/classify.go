package ptydriver

import "strings"

// identityTagMarker is the prefix the plugin CLI prints once it has
// finished generating or reading an identity.
const identityTagMarker = "AGE-PLUGIN-YUBIKEY-"

var touchPatterns = []string{"Touch", "touch", "👆"}

var pinPatterns = []string{"Enter PIN", "PIN:", "PIN for"}

var errorMarkers = []string{"error", "Error", "failed", "Failed"}

// classifyLine maps one line of combined PTY output to a state transition,
// following the substring rules in the PTY driver's output-classification
// table. Returns ok=false if the line carries no recognized signal.
func classifyLine(line string) (State, bool) {
	if line == "" {
		return Idle, false
	}

	if strings.Contains(line, "Generating key") {
		return GeneratingKey, true
	}
	for _, p := range pinPatterns {
		if strings.Contains(line, p) {
			return WaitingForPin, true
		}
	}
	for _, p := range touchPatterns {
		if strings.Contains(line, p) {
			return WaitingForTouch, true
		}
	}
	if strings.Contains(line, identityTagMarker) {
		return Complete, true
	}
	for _, p := range errorMarkers {
		if strings.Contains(line, p) {
			return Failed, true
		}
	}
	return Idle, false
}
