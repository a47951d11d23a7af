// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and returns a Result with stream and container
// metadata. Helpers on Result pick the primary video stream and parse the
// rational frame rate, frame count, duration and bit rate values ffprobe
// reports as strings. Missing values parse to zero rather than failing.
package ffprobe
