package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChktexWarning(t *testing.T) {
	diags := ParseChktex([]byte("5:10:3:Warning:12:Command terminated with space.\n"))

	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, lineRange(4, 9, 12), d.Range)
	assert.Equal(t, SeverityWarning, d.Severity)
	assert.Equal(t, "chktex", d.Source)
	assert.Equal(t, "12", d.Code)
	assert.Equal(t, "Command terminated with space.", d.Message)
}

func TestParseChktexSeverities(t *testing.T) {
	out := "1:1:1:Message:1:note\n" +
		"2:1:1:Error:2:broken\n" +
		"3:1:1:Fatal:3:other\n"

	diags := ParseChktex([]byte(out))

	require.Len(t, diags, 3)
	assert.Equal(t, SeverityInformation, diags[0].Severity)
	assert.Equal(t, SeverityError, diags[1].Severity)
	assert.Equal(t, SeverityError, diags[2].Severity)
}

func TestParseChktexSkipsNoise(t *testing.T) {
	out := "ChkTeX v1.7.8 - Copyright 1995-96 Jens T. Berger Thielemann.\n" +
		"\n" +
		"0:1:1:Warning:1:line zero\n" +
		"7:2:4:Warning:36:You should put a space in front of parenthesis.\n"

	diags := ParseChktex([]byte(out))

	require.Len(t, diags, 1)
	assert.Equal(t, lineRange(6, 1, 5), diags[0].Range)
	assert.Equal(t, "36", diags[0].Code)
}

func TestParseChktexEmpty(t *testing.T) {
	diags := ParseChktex(nil)
	assert.NotNil(t, diags)
	assert.Empty(t, diags)
}

func TestParseHunspellMiss(t *testing.T) {
	diags := ParseHunspell([]byte("& hte 1 3: the, he\n"))

	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, lineRange(0, 3, 6), d.Range)
	assert.Equal(t, SeverityInformation, d.Severity)
	assert.Equal(t, "Spell Checker", d.Source)
	assert.Empty(t, d.Code)
	assert.Equal(t, "Maybe a spelling error, suggestion: the", d.Message)
}

func TestParseHunspellIgnoresOtherLines(t *testing.T) {
	out := "@(#) International Ispell Version 3.2.06 (but really Hunspell 1.7.2)\n" +
		"*\n" +
		"\n" +
		"+ walk\n" +
		"- compound\n" +
		"# qzxv 12\n" +
		"& speling 2 14: spelling, spieling\n"

	diags := ParseHunspell([]byte(out))

	require.Len(t, diags, 1)
	assert.Equal(t, lineRange(1, 14, 21), diags[0].Range)
	assert.Equal(t, "Maybe a spelling error, suggestion: spelling", diags[0].Message)
}

func TestHunspellInputNormalizes(t *testing.T) {
	decomposed := "cafe\u0301"
	assert.Equal(t, "caf\u00e9/n/n/0", HunspellInput(decomposed))
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Range: lineRange(4, 9, 12), Severity: SeverityWarning, Source: "chktex", Code: "12", Message: "msg"}
	assert.Equal(t, "5:10: warning: [12] msg (chktex)", d.String())
}
