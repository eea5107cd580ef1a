package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/scriptplay/internal/resource"
	"github.com/dgnsrekt/scriptplay/internal/script"
)

// Two frames of 16-bit mono L16.
const testClip = "data:audio/L16;rate=44100;channels=1;base64,AAEAAgADAAQ="

// execute runs the root command against scriptFile with the mock engine.
func execute(t *testing.T, scriptFile string, args ...string) (string, error) {
	t.Helper()

	background, assumeYes, dryRun, plain, findAll, voiceName = false, false, false, false, false, ""

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--script", scriptFile, "--engine", "mock"))
	err := rootCmd.Execute()
	return out.String(), err
}

func loadScript(t *testing.T, path string) *script.Store {
	t.Helper()
	logger := log.New(io.Discard)
	store := script.NewStore(resource.NewManager(cfg.Format(), nil, logger), logger)
	if err := store.LoadFile(path); err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestScriptCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.json")

	if _, err := execute(t, path, "add", "Alice", "Once", "upon", "a", "time"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := execute(t, path, "add", "Bob", "The end"); err != nil {
		t.Fatalf("add: %v", err)
	}

	clip := filepath.Join(t.TempDir(), "rain.wav")
	if err := os.WriteFile(clip, []byte("RIFF0000WAVE"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, path, "add-audio", clip, "--background"); err != nil {
		t.Fatalf("add-audio: %v", err)
	}
	if _, err := execute(t, path, "copy", "3"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if _, err := execute(t, path, "role", "4", "effect"); err != nil {
		t.Fatalf("role: %v", err)
	}
	if _, err := execute(t, path, "set-text", "2", "The", "real", "end", "--voice", "Alice"); err != nil {
		t.Fatalf("set-text: %v", err)
	}
	if _, err := execute(t, path, "rm", "1"); err != nil {
		t.Fatalf("rm: %v", err)
	}

	store := loadScript(t, path)
	items := store.Items()
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}

	line, ok := items[0].(script.SpeechItem)
	if !ok || line.Text != "The real end" || line.VoiceName != "Alice" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if bg := items[1].(script.AudioItem); bg.FileName != "rain.wav" || bg.Role != script.RoleBackground {
		t.Errorf("items[1] = %+v", bg)
	}
	if fx := items[2].(script.AudioItem); fx.FileName != "Copy of rain.wav" || fx.Role != script.RoleEffect {
		t.Errorf("items[2] = %+v", fx)
	}

	out, err := execute(t, path, "ls", "--plain")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	for _, want := range []string{"The real end", "rain.wav", "_background_", "1 line, 2 clips"} {
		if !strings.Contains(out, want) {
			t.Errorf("ls output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, path, "clear", "--yes"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n := loadScript(t, path).Len(); n != 0 {
		t.Errorf("after clear got %d items", n)
	}
}

func TestScriptCommandErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.json")
	if _, err := execute(t, path, "add", "Alice", "hello"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"index zero", []string{"rm", "0"}},
		{"index past end", []string{"rm", "2"}},
		{"not a number", []string{"rm", "first"}},
		{"role on a line", []string{"role", "1"}},
		{"copy a line", []string{"copy", "1"}},
		{"empty text", []string{"set-text", "1", " "}},
		{"missing file", []string{"add-audio", filepath.Join(t.TempDir(), "nope.wav")}},
		{"clear without a terminal", []string{"clear"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, path, tt.args...); err == nil {
				t.Error("expected an error")
			}
			if n := loadScript(t, path).Len(); n != 1 {
				t.Errorf("script changed: %d items", n)
			}
		})
	}
}

func TestPlayDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.json")
	if _, err := execute(t, path, "play", "--dry-run"); err == nil {
		t.Error("playing an empty script should fail")
	}

	if _, err := execute(t, path, "add", "Alice", "hello"); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, path, "play", "--dry-run")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !strings.Contains(out, "1/1") || !strings.Contains(out, "Finished") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestVoices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.json")

	out, err := execute(t, path, "voices")
	if err != nil {
		t.Fatalf("voices: %v", err)
	}
	if !strings.Contains(out, "Alice") || !strings.Contains(out, "Bob") {
		t.Errorf("voices = %q", out)
	}

	out, err = execute(t, path, "voices", "bo")
	if err != nil {
		t.Fatalf("voices bo: %v", err)
	}
	if strings.TrimSpace(out) != "Bob" {
		t.Errorf("voices bo = %q", out)
	}
}

func TestScriptTable(t *testing.T) {
	if got := scriptTable(nil); !strings.Contains(got, "empty") {
		t.Errorf("empty table = %q", got)
	}

	items := []script.Item{
		script.NewSpeech("Alice", "pipes | and\nnewlines"),
		script.NewAudio("boom.wav", testClip, script.RoleEffect),
	}
	got := scriptTable(items)

	if !strings.Contains(got, `pipes \| and newlines`) {
		t.Errorf("cell not escaped:\n%s", got)
	}
	if !strings.Contains(got, "| 2 | _effect_ | ♪ boom.wav |") {
		t.Errorf("clip row missing:\n%s", got)
	}
	if !strings.Contains(got, "1 line, 1 clip") {
		t.Errorf("summary missing:\n%s", got)
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"story.json":        `[{"kind":"speech","voiceName":"Alice","text":"hi"}]`,
		"nested/other.json": `[{"kind":"speech","voiceName":"Bob","text":"one"},{"kind":"speech","voiceName":"Bob","text":"two"}]`,
		"package.json":      `{"name":"not a script"}`,
		"empty.json":        `[]`,
		"notes.txt":         `[]`,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	out, err := execute(t, filepath.Join(dir, "script.json"), "find", dir)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	for _, want := range []string{"story.json", "1 item", filepath.Join("nested", "other.json"), "2 items"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"package.json", "empty.json", "notes.txt"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("output lists %q:\n%s", unwanted, out)
		}
	}

	out, err = execute(t, filepath.Join(dir, "script.json"), "find", t.TempDir())
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !strings.Contains(out, "No scripts found") {
		t.Errorf("output = %q", out)
	}
}
