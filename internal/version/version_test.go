package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestCurrent(t *testing.T) {
	b := Current()
	switch {
	case b.Version == "":
		t.Error("version should not be empty")
	case b.Commit == "":
		t.Error("commit should not be empty")
	case b.Date == "":
		t.Error("date should not be empty")
	case b.GoVersion != runtime.Version():
		t.Errorf("unexpected go version %q", b.GoVersion)
	}
}

func TestString(t *testing.T) {
	s := String()
	for _, part := range []string{"version=", "commit=", "date=", "go="} {
		if !strings.Contains(s, part) {
			t.Errorf("String() = %q should contain %q", s, part)
		}
	}
}
