package script

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantIndex int
	}{
		{"empty", ``, -1},
		{"object", `{"kind":"speech"}`, -1},
		{"null document", `null`, -1},
		{"padded null document", " null\n", -1},
		{"bogus kind", `[{"kind":"bogus"}]`, 0},
		{"missing kind", `[{"text":"hi"}]`, 0},
		{"null element", `[null]`, 0},
		{"number element", `[5]`, 0},
		{"speech without text", `[{"kind":"speech","voiceName":"A"}]`, 0},
		{"speech blank text", `[{"kind":"speech","voiceName":"A","text":"  "}]`, 0},
		{"speech without voice", `[{"kind":"speech","text":"hi"}]`, 0},
		{"text wrong type", `[{"kind":"speech","voiceName":"A","text":3}]`, 0},
		{"audio without data", `[{"kind":"audio","fileName":"a.wav"}]`, 0},
		{"audio without name", `[{"kind":"audio","audioData":"` + clipX + `"}]`, 0},
		{"audio blob url", `[{"kind":"audio","fileName":"a.wav","audioData":"blob:x"}]`, 0},
		{"audio unknown role", `[{"kind":"audio","fileName":"a","audioData":"` + clipX + `","audioType":"loop"}]`, 0},
		{"second bad", `[{"kind":"speech","voiceName":"A","text":"ok"},{"kind":"speech"}]`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			var serr *SchemaError
			if !errors.As(err, &serr) {
				t.Fatalf("error = %v, want SchemaError", err)
			}
			if serr.Index != tt.wantIndex {
				t.Errorf("Index = %d, want %d", serr.Index, tt.wantIndex)
			}
		})
	}
}

func TestSerialize_Shape(t *testing.T) {
	items := []Item{
		NewSpeech("Alice", "Hello"),
		NewAudio("bell.wav", clipX, ""),
	}

	data, err := Serialize(items)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !strings.Contains(string(data), "\n  {\n    \"id\"") {
		t.Errorf("expected two-space indentation, got:\n%s", data)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}

	speechKeys := []string{"id", "kind", "voiceName", "text"}
	audioKeys := []string{"id", "kind", "fileName", "audioData", "audioType"}
	for i, want := range [][]string{speechKeys, audioKeys} {
		if len(decoded[i]) != len(want) {
			t.Errorf("item %d has keys %v, want %v", i, decoded[i], want)
		}
		for _, k := range want {
			if _, ok := decoded[i][k]; !ok {
				t.Errorf("item %d missing key %q", i, k)
			}
		}
	}
	if decoded[1]["audioType"] != "effect" {
		t.Errorf("audioType = %v, want effect", decoded[1]["audioType"])
	}
}

func TestSerializeDecode_RoundTrip(t *testing.T) {
	items := []Item{
		NewSpeech("Alice", "Hello"),
		NewAudio("music.mp3", clipX, RoleBackground),
		NewSpeech("Bob", "World"),
		NewAudio("bell.wav", clipY, RoleEffect),
	}

	data, err := Serialize(items)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(got) != len(items) {
		t.Fatalf("len = %d, want %d", len(got), len(items))
	}
	for i := range items {
		if got[i].ID() == items[i].ID() {
			t.Errorf("item %d kept its id", i)
		}
		switch want := items[i].(type) {
		case SpeechItem:
			g := got[i].(SpeechItem)
			if g.VoiceName != want.VoiceName || g.Text != want.Text {
				t.Errorf("item %d = %+v, want %+v", i, g, want)
			}
		case AudioItem:
			g := got[i].(AudioItem)
			if g.FileName != want.FileName || g.Content != want.Content || g.Role != want.Role {
				t.Errorf("item %d = %+v, want %+v", i, g, want)
			}
			if g.Handle() != nil {
				t.Errorf("item %d decoded with a handle", i)
			}
		}
	}
}

func TestDecode_LegacyTypeKey(t *testing.T) {
	doc := `[{"id":"x","type":"speech","voiceName":"Google US English","text":"Hi"}]`
	items, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if items[0].Kind() != KindSpeech {
		t.Errorf("Kind = %s, want speech", items[0].Kind())
	}
}

func TestAudioRole(t *testing.T) {
	if AudioRole("").Normalize() != RoleEffect {
		t.Error("zero role should normalize to effect")
	}
	if RoleEffect.Toggle() != RoleBackground || RoleBackground.Toggle() != RoleEffect {
		t.Error("Toggle should flip roles")
	}
	if AudioRole("loop").Valid() {
		t.Error("unknown role should be invalid")
	}
}
