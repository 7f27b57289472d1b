package vocab

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadAssignsLineIDs(t *testing.T) {
	v, err := Read(strings.NewReader("<pad>\n<eos>\r\n<unk>\nhello \nworld\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v.Len() != 5 {
		t.Fatalf("len = %d", v.Len())
	}
	for tok, want := range map[string]int32{"<pad>": 0, "<eos>": 1, "hello": 3, "world": 4} {
		if got, ok := v.Lookup(tok); !ok || got != want {
			t.Errorf("Lookup(%q) = %d, %v; want %d", tok, got, ok, want)
		}
	}
}

func TestReadRejectsBadFiles(t *testing.T) {
	cases := map[string]string{
		"blank line": "a\n\nb\n",
		"duplicate":  "a\nb\na\n",
		"empty":      "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	v, err := New([]string{"<pad>", "<eos>", "<unk>", "a", "b"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ids, err := v.Encode([]string{"a", "zzz", "b"}, "<unk>")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if diff := cmp.Diff([]int32{3, 2, 4}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if _, err := v.Encode([]string{"zzz"}, ""); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
	if diff := cmp.Diff([]string{"a", "<eos>", "<9>"}, v.Decode([]int32{3, 1, 9})); diff != "" {
		t.Fatalf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte("<pad>\n<eos>\nx\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if id, err := v.ID("x"); err != nil || id != 2 {
		t.Fatalf("ID(x) = %d, %v", id, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSynthetic(t *testing.T) {
	v, err := Synthetic(6)
	if err != nil {
		t.Fatalf("synthetic: %v", err)
	}
	if diff := cmp.Diff([]string{"<pad>", "<eos>", "<unk>", "t3", "t4", "t5"}, v.Decode([]int32{0, 1, 2, 3, 4, 5})); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
	if _, err := Synthetic(3); err == nil {
		t.Fatal("expected error for tiny vocabulary")
	}
}
