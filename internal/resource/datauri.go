package resource

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

var (
	// ErrNotDataURI is returned for content that is not a base64 data URI.
	ErrNotDataURI = errors.New("content is not a base64 data URI")

	// ErrNotAudio is returned by ReadAudioFile for non-audio files.
	ErrNotAudio = errors.New("not an audio file")
)

// ParseDataURI splits a "data:<mime>;base64,<payload>" string into its
// media type (with parameters) and decoded bytes. Only base64 payloads are
// accepted.
func ParseDataURI(content string) (string, []byte, error) {
	if !strings.HasPrefix(content, "data:") {
		return "", nil, ErrNotDataURI
	}

	du, err := dataurl.DecodeString(content)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrNotDataURI, err)
	}
	if du.Encoding != dataurl.EncodingBase64 {
		return "", nil, fmt.Errorf("%w: payload is not base64", ErrNotDataURI)
	}
	if len(du.Data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrNotDataURI)
	}

	// dataurl fills in text/plain when the URI names no type; keep it
	// empty so the decoder sniffs the container instead
	if strings.HasPrefix(content, "data:;") || strings.HasPrefix(content, "data:,") {
		return "", du.Data, nil
	}

	mediaType := mime.FormatMediaType(du.ContentType(), du.Params)
	if mediaType == "" {
		mediaType = du.ContentType()
	}
	return mediaType, du.Data, nil
}

// IsDataURI reports whether content parses as a base64 data URI.
func IsDataURI(content string) bool {
	_, _, err := ParseDataURI(content)
	return err == nil
}

// EncodeDataURI builds content for a newly added clip. Parameters in
// mimeType are carried over.
func EncodeDataURI(mimeType string, data []byte) string {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil || !strings.Contains(mediaType, "/") {
		mediaType, params = "application/octet-stream", nil
	}

	pairs := make([]string, 0, 2*len(params))
	for k, v := range params {
		pairs = append(pairs, k, v)
	}
	return dataurl.New(data, mediaType, pairs...).String()
}

// audioExtensions covers types the system mime tables often lack.
var audioExtensions = map[string]string{
	".wav":  "audio/wav",
	".wave": "audio/wav",
	".mp3":  "audio/mpeg",
}

// DetectMIME guesses the media type of an audio file from its name, then
// from its leading bytes.
func DetectMIME(fileName string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if t, ok := audioExtensions[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); ext != "" && strings.HasPrefix(t, "audio/") {
		return t
	}
	if t := http.DetectContentType(data); strings.HasPrefix(t, "audio/") {
		return t
	}
	return "application/octet-stream"
}

// ReadAudioFile reads an audio file from disk and encodes it as clip
// content.
func ReadAudioFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("unable to read clip: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%s: %w (file is empty)", path, ErrNotAudio)
	}

	mimeType := DetectMIME(path, data)
	if !strings.HasPrefix(mimeType, "audio/") {
		return "", fmt.Errorf("%s: %w", path, ErrNotAudio)
	}
	return EncodeDataURI(mimeType, data), nil
}
