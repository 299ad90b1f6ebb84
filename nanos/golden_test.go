package nanos

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestGolden parses each testdata/golden/*.slid fixture and checks the
// re-emitted text against the matching .want file.
func TestGolden(t *testing.T) {
	dir := filepath.Join("testdata", "golden")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read golden dir: %v", err)
	}

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".slid") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".slid")
		t.Run(name, func(t *testing.T) {
			input, err := os.ReadFile(filepath.Join(dir, name+".slid"))
			if err != nil {
				t.Fatalf("failed to read input: %v", err)
			}
			wantBytes, err := os.ReadFile(filepath.Join(dir, name+".want"))
			if err != nil {
				t.Fatalf("failed to read expected output: %v", err)
			}
			expected := strings.TrimSpace(string(wantBytes))

			c, err := Parse(string(input))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}

			got := c.String()
			if got != expected {
				t.Errorf("output mismatch\n  got:      %s\n  expected: %s", got, expected)
			}

			// Re-parse and verify the output is stable
			again, err := Parse(got)
			if err != nil {
				t.Fatalf("re-Parse failed: %v", err)
			}
			if reemit := again.String(); reemit != got {
				t.Errorf("non-deterministic output\n  first:  %s\n  second: %s", got, reemit)
			}
			if CanonicalHash(again) != CanonicalHash(c) {
				t.Error("canonical hash changed across round trip")
			}
		})
	}
}
