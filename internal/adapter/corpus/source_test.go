package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCorpus(t *testing.T, content string) *Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return NewSource(path)
}

func TestReadRoundTrip(t *testing.T) {
	src := writeCorpus(t, "Emergency Ward: 50 beds, 10 occupied.")

	text, err := src.Read()
	if err != nil {
		t.Fatal(err)
	}
	if text != "Emergency Ward: 50 beds, 10 occupied." {
		t.Errorf("unexpected corpus text: %q", text)
	}
}

func TestFingerprintStableForSameContent(t *testing.T) {
	src := writeCorpus(t, "same content")

	a, err := src.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	b, err := src.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("fingerprint not stable: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("expected 128-bit hex digest, got %d chars", len(a))
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")
	src := NewSource(path)

	if err := os.WriteFile(path, []byte("content A"), 0644); err != nil {
		t.Fatal(err)
	}
	f1, err := src.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("content B"), 0644); err != nil {
		t.Fatal(err)
	}
	f2, err := src.Fingerprint()
	if err != nil {
		t.Fatal(err)
	}

	if f1 == f2 {
		t.Error("fingerprint did not change with content")
	}
}

func TestMissingCorpusIsAnError(t *testing.T) {
	src := NewSource(filepath.Join(t.TempDir(), "missing.txt"))

	if _, err := src.Read(); err == nil {
		t.Error("expected error reading missing corpus")
	}
	if _, err := src.Fingerprint(); err == nil {
		t.Error("expected error fingerprinting missing corpus")
	}
}
