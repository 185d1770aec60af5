// Package audio knows which uploads are acceptable and how long they play.
package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// BytesPerSecond assumes a 128 kbps stream when frames cannot be counted
const BytesPerSecond = 128000 / 8

var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/x-m4a",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".aac":  "audio/aac",
	".flac": "audio/flac",
}

// Info describes a stored audio file
type Info struct {
	FileType string
	Seconds  int
	// Estimated is true when Seconds came from the byte-rate heuristic
	Estimated bool
}

// SupportedExtension reports whether name carries an accepted audio extension
func SupportedExtension(name string) bool {
	_, ok := contentTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ContentType maps a file name to its MIME type
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// EstimateSeconds rounds size / BytesPerSecond
func EstimateSeconds(size int64) int {
	return int(math.Round(float64(size) / BytesPerSecond))
}

// Probe identifies the file at path and measures its duration. MP3 files are
// measured by summing frame durations; everything else is estimated from size.
func Probe(path string, size int64) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	info := Info{FileType: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")}

	// files shorter than a tag header fail identification; keep the extension
	if _, fileType, err := tag.Identify(f); err == nil && fileType != tag.UnknownFileType {
		info.FileType = strings.ToLower(string(fileType))
	}

	if info.FileType == "mp3" {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return Info{}, fmt.Errorf("failed to rewind audio file: %w", err)
		}
		if d, err := mp3Duration(f); err == nil && d > 0 {
			info.Seconds = int(math.Round(d.Seconds()))
			return info, nil
		}
	}

	info.Seconds = EstimateSeconds(size)
	info.Estimated = true
	return info, nil
}

func mp3Duration(r io.Reader) (time.Duration, error) {
	dec := mp3.NewDecoder(r)

	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return total, nil
			}
			return total, err
		}
		total += frame.Duration()
	}
}
