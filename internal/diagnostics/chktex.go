package diagnostics

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"

	"fortio.org/safecast"
)

const chktexSource = "chktex"

var chktexLine = regexp.MustCompile(`(\d+):(\d+):(\d+):(\w+):(\w+):(.*)`)

// ParseChktex reads chktex output produced with -f%l:%c:%d:%k:%n:%m.
// Lines that do not match the format are skipped.
func ParseChktex(out []byte) []Diagnostic {
	diags := []Diagnostic{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		m := chktexLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		line, okLine := oneBased(m[1])
		col, okCol := oneBased(m[2])
		width, okWidth := parseU32(m[3])
		if !okLine || !okCol || !okWidth {
			continue
		}
		diags = append(diags, Diagnostic{
			Range:    lineRange(line, col, col+width),
			Severity: chktexSeverity(m[4]),
			Source:   chktexSource,
			Code:     m[5],
			Message:  m[6],
		})
	}
	return diags
}

func chktexSeverity(kind string) Severity {
	switch kind {
	case "Message":
		return SeverityInformation
	case "Warning":
		return SeverityWarning
	default:
		return SeverityError
	}
}

func parseU32(s string) (uint32, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0, false
	}
	return v, true
}

// oneBased converts a 1-based tool coordinate to a 0-based one.
func oneBased(s string) (uint32, bool) {
	n, ok := parseU32(s)
	if !ok || n == 0 {
		return 0, false
	}
	return n - 1, true
}
