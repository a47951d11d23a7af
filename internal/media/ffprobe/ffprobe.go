package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	PixFmt       string `json:"pix_fmt"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NBFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
	BitRate      string `json:"bit_rate"`

	Tags         map[string]string `json:"tags"`
	SideDataList []SideData        `json:"side_data_list"`
}

// SideData is one entry of a stream's side_data_list. Only the display
// matrix rotation is read.
type SideData struct {
	SideDataType string  `json:"side_data_type"`
	Rotation     float64 `json:"rotation"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return Parse(output)
}

// Parse decodes raw ffprobe JSON.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoStream returns the first video stream, if any.
func (r Result) VideoStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return nonNegative(parseFloat(r.Format.Duration))
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	return int64(nonNegative(parseFloat(r.Format.BitRate)))
}

// FrameRate returns the stream frame rate as a reduced fraction. The real
// base rate is preferred over the average. Zero values mean unknown.
func (s Stream) FrameRate() (num, den int) {
	for _, value := range []string{s.RFrameRate, s.AvgFrameRate} {
		if n, d, ok := ParseRational(value); ok {
			return n, d
		}
	}
	return 0, 0
}

// FrameCount returns nb_frames, or 0 when the container does not record it.
func (s Stream) FrameCount() int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s.NBFrames), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// StreamBitRate returns the stream bitrate, or 0 when unavailable.
func (s Stream) StreamBitRate() int64 {
	return int64(nonNegative(parseFloat(s.BitRate)))
}

// DurationSeconds returns the stream duration, or 0 when unavailable.
func (s Stream) DurationSeconds() float64 {
	return nonNegative(parseFloat(s.Duration))
}

// Rotation returns the clockwise rotation, in degrees within [0, 360), a
// player applies when displaying the stream. The display matrix is preferred
// over the legacy rotate tag. ffmpeg applies the same rotation when decoding
// unless -noautorotate is given.
func (s Stream) Rotation() int {
	for _, side := range s.SideDataList {
		if strings.EqualFold(side.SideDataType, "Display Matrix") {
			return normalizeDegrees(-side.Rotation)
		}
	}
	if raw, ok := s.Tags["rotate"]; ok {
		if value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return normalizeDegrees(value)
		}
	}
	return 0
}

// DisplaySize returns the geometry of decoded frames after rotation.
func (s Stream) DisplaySize() (width, height int) {
	if rot := s.Rotation(); rot == 90 || rot == 270 {
		return s.Height, s.Width
	}
	return s.Width, s.Height
}

func normalizeDegrees(value float64) int {
	deg := int(math.Round(value)) % 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// ParseRational parses "num/den" (or a bare integer) into a reduced fraction.
func ParseRational(value string) (num, den int, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0, false
	}
	numStr, denStr, found := strings.Cut(value, "/")
	if !found {
		denStr = "1"
	}
	n, err := strconv.Atoi(strings.TrimSpace(numStr))
	if err != nil || n <= 0 {
		return 0, 0, false
	}
	d, err := strconv.Atoi(strings.TrimSpace(denStr))
	if err != nil || d <= 0 {
		return 0, 0, false
	}
	g := gcd(n, d)
	return n / g, d / g, true
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "N/A" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

func nonNegative(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0
	}
	return value
}
