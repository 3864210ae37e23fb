// Package filehandler finds the source videos of a recording session and
// extracts the metadata the dataset builder needs from them.
//
// Frame counts come from the count table, not from the videos. The only
// property read from the files themselves is the frame rate, and only for
// containers that carry one (MP4). Raw H.264 elementary streams have no
// reliable rate, so callers fall back to a configured default for them.
package filehandler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// SupportedVideoExtensions defines the video suffixes a session directory may contain.
var SupportedVideoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".h264": "video/h264",
}

// VideoFile is a video found in a session directory.
type VideoFile struct {
	Path     string
	Name     string
	MIMEType string
	Size     int64
}

// Ext returns the lower-cased extension of the file, including the dot.
func (v *VideoFile) Ext() string {
	return strings.ToLower(filepath.Ext(v.Name))
}

// LoadVideoFile stats a video on disk and returns a VideoFile for it.
func LoadVideoFile(filePath string) (*VideoFile, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", filePath)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	mimeType, err := GetMIMEType(ext)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", filePath).
		Str("mime_type", mimeType).
		Int64("size_bytes", info.Size()).
		Msg("Video file loaded")

	return &VideoFile{
		Path:     filePath,
		Name:     filepath.Base(filePath),
		MIMEType: mimeType,
		Size:     info.Size(),
	}, nil
}

// GetMIMEType returns the MIME type for a given file extension.
func GetMIMEType(ext string) (string, error) {
	if mimeType, ok := SupportedVideoExtensions[strings.ToLower(ext)]; ok {
		return mimeType, nil
	}
	return "", fmt.Errorf("unsupported file extension: %s", ext)
}

// IsVideo returns true if the file extension corresponds to a supported video.
func IsVideo(ext string) bool {
	_, ok := SupportedVideoExtensions[strings.ToLower(ext)]
	return ok
}

// StripVideoExtension removes a known video suffix from a filename.
// Names without a known suffix are returned unchanged.
func StripVideoExtension(name string) string {
	ext := filepath.Ext(name)
	if !IsVideo(ext) {
		return name
	}
	return strings.TrimSuffix(name, ext)
}
