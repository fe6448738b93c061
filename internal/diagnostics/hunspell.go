package diagnostics

import (
	"bufio"
	"bytes"
	"regexp"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

const (
	hunspellSource = "Spell Checker"
	hunspellPrefix = "Maybe a spelling error, suggestion: "
	// hunspellTrailer is appended to every document; hunspell reads it as
	// an ordinary trailing word.
	hunspellTrailer = "/n/n/0"
)

var hunspellLine = regexp.MustCompile(`[&#] (\w+) (\d+) (\d+): (\w+)`)

// HunspellInput frames text for hunspell -a. Text is NFC-normalized so that
// composed and decomposed accents are checked the same way.
func HunspellInput(text string) string {
	return norm.NFC.String(text) + hunspellTrailer
}

// ParseHunspell reads hunspell pipe-mode output. Correct words ("*") and any
// line that is not a miss with a suggestion are skipped.
func ParseHunspell(out []byte) []Diagnostic {
	diags := []Diagnostic{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		text := sc.Text()
		if text == "" || (text[0] != '&' && text[0] != '#') {
			continue
		}
		m := hunspellLine.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		word := m[1]
		line, okLine := oneBased(m[2])
		col, okCol := parseU32(m[3])
		width, err := safecast.Conv[uint32](len(word))
		if !okLine || !okCol || err != nil {
			continue
		}
		diags = append(diags, Diagnostic{
			Range:    lineRange(line, col, col+width),
			Severity: SeverityInformation,
			Source:   hunspellSource,
			Message:  hunspellPrefix + m[4],
		})
	}
	return diags
}
