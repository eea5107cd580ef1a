package resource

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDataURI(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantMIME string
		wantData string
		wantErr  bool
	}{
		{"wav", "data:audio/wav;base64,UklGRg==", "audio/wav", "RIFF", false},
		{"params", "data:audio/L16;rate=8000;base64,AAE=", "audio/l16; rate=8000", "\x00\x01", false},
		{"no mime", "data:;base64,aGk=", "", "hi", false},
		{"blob url", "blob:http://localhost/1234", "", "", true},
		{"plain text", "hello", "", "", true},
		{"not base64", "data:audio/wav,RIFF", "", "", true},
		{"bad payload", "data:audio/wav;base64,!!!", "", "", true},
		{"empty payload", "data:audio/wav;base64,", "", "", true},
		{"missing comma", "data:audio/wav;base64", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mimeType, data, err := ParseDataURI(tt.content)
			if tt.wantErr {
				if !errors.Is(err, ErrNotDataURI) {
					t.Errorf("error = %v, want ErrNotDataURI", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.EqualFold(mimeType, tt.wantMIME) {
				t.Errorf("mime = %q, want %q", mimeType, tt.wantMIME)
			}
			if string(data) != tt.wantData {
				t.Errorf("data = %q, want %q", data, tt.wantData)
			}
		})
	}
}

func TestEncodeDataURI(t *testing.T) {
	content := EncodeDataURI("audio/mpeg", []byte("ID3"))
	if !strings.HasPrefix(content, "data:audio/mpeg") || !strings.HasSuffix(content, ";base64,SUQz") {
		t.Errorf("EncodeDataURI = %q", content)
	}

	tests := []struct {
		mimeType string
		wantMIME string
	}{
		{"audio/wav", "audio/wav"},
		{"audio/L16; rate=8000; channels=1", "audio/l16; channels=1; rate=8000"},
		{"not a type", "application/octet-stream"},
	}
	for _, tt := range tests {
		mimeType, data, err := ParseDataURI(EncodeDataURI(tt.mimeType, []byte{1, 2, 3}))
		if err != nil {
			t.Fatalf("%s: encoded content should parse: %v", tt.mimeType, err)
		}
		if !strings.EqualFold(mimeType, tt.wantMIME) || string(data) != "\x01\x02\x03" {
			t.Errorf("%s: round trip = %q %v", tt.mimeType, mimeType, data)
		}
	}
}

func TestDetectMIME(t *testing.T) {
	wav := []byte("RIFF\x24\x00\x00\x00WAVEfmt ")

	tests := []struct {
		name     string
		fileName string
		data     []byte
		want     string
	}{
		{"by extension", "bell.wav", nil, "audio/wav"},
		{"upper extension", "SONG.MP3", nil, "audio/mpeg"},
		{"by content", "bell", wav, "audio/wave"},
		{"mp3 by content", "intro", []byte("ID3\x03\x00\x00\x00\x00\x00\x00"), "audio/mpeg"},
		{"unknown", "notes", []byte("hello"), "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIME(tt.fileName, tt.data); got != tt.want {
				t.Errorf("DetectMIME = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadAudioFile(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "boom.wav")
	notes := filepath.Join(dir, "notes.txt")
	empty := filepath.Join(dir, "empty.mp3")
	if err := os.WriteFile(clip, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(notes, []byte("just some text"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	content, err := ReadAudioFile(clip)
	if err != nil {
		t.Fatalf("ReadAudioFile failed: %v", err)
	}
	if !strings.HasPrefix(content, "data:audio/wav;base64,") {
		t.Errorf("content = %q", content)
	}

	for _, path := range []string{notes, empty} {
		if _, err := ReadAudioFile(path); !errors.Is(err, ErrNotAudio) {
			t.Errorf("ReadAudioFile(%s) error = %v, want ErrNotAudio", filepath.Base(path), err)
		}
	}

	if _, err := ReadAudioFile(filepath.Join(dir, "missing.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want not exist", err)
	}
}
