package diskcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"
)

type entry struct {
	Name   string
	Points []r3.Vec
	Hours  []float64
}

func TestRoundTrip(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache"), nil)
	k, err := MakeKey("grid", []r3.Vec{{X: 1}}, 28.004, -80.5687)
	if err != nil {
		t.Fatal(err)
	}

	var got entry
	if c.Load(k, &got) {
		t.Fatal("Load found an entry in an empty cache")
	}
	want := entry{"grid", []r3.Vec{{X: 1}, {Y: 2, Z: 3}}, []float64{10.5, 0}}
	if err := c.Save(k, want); err != nil {
		t.Fatal(err)
	}
	if !c.Load(k, &got) {
		t.Fatal("Load missed a saved entry")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loaded entry differs (-saved +loaded):\n%s", diff)
	}

	// No temporary files are left behind.
	files, err := os.ReadDir(c.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name() != string(k) {
		t.Errorf("cache directory holds %v, want just %s", files, k)
	}
}

func TestMakeKey(t *testing.T) {
	a, _ := MakeKey("grid", 28.004, -80.5687)
	b, _ := MakeKey("grid", 28.004, -80.5687)
	c, _ := MakeKey("grid", 28.004, -80.5688)
	if a != b {
		t.Errorf("equal inputs give keys %s and %s", a, b)
	}
	if a == c {
		t.Errorf("different inputs share key %s", a)
	}
	if len(a) != 64 {
		t.Errorf("key %q is not a hex SHA-256", a)
	}
	if _, err := MakeKey(func() {}); err == nil {
		t.Error("MakeKey accepted a func")
	}
}

func TestCorruptEntry(t *testing.T) {
	c := New(t.TempDir(), nil)
	k, _ := MakeKey("corrupt")
	if err := os.WriteFile(c.path(k), []byte("not gob"), 0o666); err != nil {
		t.Fatal(err)
	}
	var got entry
	if c.Load(k, &got) {
		t.Error("Load accepted a corrupt entry")
	}
}
