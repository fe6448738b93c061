package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texlsp/internal/buildpipeline"
)

func TestBuildModelKeepsTail(t *testing.T) {
	events := make(chan buildpipeline.Event)
	m := NewBuildModel("main.tex", events, 3).(*buildModel)

	m.Update(eventMsg{Kind: buildpipeline.EventBegin, Title: "thesis.tex"})
	for i := 1; i <= 5; i++ {
		m.Update(eventMsg{Kind: buildpipeline.EventLog, Line: fmt.Sprintf("line %d", i)})
	}

	assert.Equal(t, "thesis.tex", m.title)
	assert.Equal(t, []string{"line 3", "line 4", "line 5"}, m.tail)
	assert.Equal(t, 5, m.lines)
	view := m.View()
	assert.Contains(t, view, "building thesis.tex")
	assert.NotContains(t, view, "line 2")
	assert.Contains(t, view, "5 lines of output")
}

func TestBuildModelQuitsAfterDrainAndResult(t *testing.T) {
	m := NewBuildModel("main.tex", nil, 0).(*buildModel)

	_, cmd := m.Update(drainedMsg{})
	assert.Nil(t, cmd)

	_, cmd = m.Update(ResultMsg{Status: buildpipeline.StatusError})
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "error main.tex")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate(strings.Repeat("abcdefghij", 3), 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "日本...", truncate("日本語のテキスト", 7))
}
