package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColoredKeepsPlainTextWithoutColor(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = orig }()

	cases := map[string]string{
		"0.1.0-dev":  "0.1.0-dev",
		"1.2.3":      "1.2.3",
		"1.0.0-rc.1": "1.0.0-rc.1",
		"nightly":    "nightly",
	}
	origVersion := Version
	defer func() { Version = origVersion }()
	for in, want := range cases {
		Version = in
		if got := Colored(); got != want {
			t.Errorf("Colored() with Version=%q = %q, want %q", in, got, want)
		}
	}
}

func TestColoredAddsEscapes(t *testing.T) {
	orig := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = orig }()

	if got := Colored(); got == Version {
		t.Errorf("Colored() = %q, expected ANSI escapes", got)
	}
}
