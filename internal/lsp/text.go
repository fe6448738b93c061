package lsp

import "unicode/utf8"

// applyChanges folds incremental edits into text. A change without a range
// replaces the whole document.
func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := clampOffset(offsetForPosition(text, change.Range.Start), len(text))
		end := clampOffset(offsetForPosition(text, change.Range.End), len(text))
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

func clampOffset(off, limit int) int {
	switch {
	case off < 0:
		return 0
	case off > limit:
		return limit
	default:
		return off
	}
}

// offsetForPosition maps an LSP position (UTF-16 columns) to a byte offset.
func offsetForPosition(text string, pos position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	i := 0
	for line := 0; line < pos.Line; i++ {
		if i >= len(text) {
			return len(text)
		}
		if text[i] == '\n' {
			line++
		}
	}
	units := 0
	for i < len(text) && text[i] != '\n' && units < pos.Character {
		r, size := utf8.DecodeRuneInString(text[i:])
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > pos.Character {
			break
		}
		units += need
		i += size
	}
	return i
}
