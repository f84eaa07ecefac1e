// Package mdclean normalizes the whitespace of an assembled report.
package mdclean

import "strings"

// Clean normalizes line endings, strips trailing spaces, puts a blank line
// before every heading, collapses runs of blank lines and ends the document
// with exactly one newline. Fenced code blocks are left alone. Clean is
// idempotent.
func Clean(md string) string {
	md = strings.ReplaceAll(md, "\r\n", "\n")
	md = strings.ReplaceAll(md, "\r", "\n")

	lines := strings.Split(md, "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	blank := true // treat start of document as following a blank line

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if !inFence && !blank && len(out) > 0 {
				out = append(out, "")
			}
			inFence = !inFence
			out = append(out, strings.TrimRight(line, " \t"))
			blank = false
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}

		line = strings.TrimRight(line, " \t")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		if isHeading(line) && !blank {
			out = append(out, "")
		}
		out = append(out, line)
		blank = false
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

func isHeading(line string) bool {
	trimmed := strings.TrimLeft(line, "#")
	n := len(line) - len(trimmed)
	return n >= 1 && n <= 6 && (trimmed == "" || trimmed[0] == ' ')
}
