// Package process terminates the headless browser process tree started for
// PDF export.
package process
