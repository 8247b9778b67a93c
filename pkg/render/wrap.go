package render

import "strings"

// WrapLabel breaks label into lines no wider than maxWidth, measured with
// measure. Words are never split: a word wider than maxWidth gets a line of
// its own. Explicit newlines are kept. The returned width is the widest line.
func WrapLabel(label string, maxWidth int, measure func(string) int) (lines []string, width int) {
	lines = []string{}
	for _, para := range strings.Split(label, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			if para != "" || len(lines) > 0 {
				lines = append(lines, "")
			}
			continue
		}

		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if measure(candidate) <= maxWidth {
				line = candidate
				continue
			}
			lines = append(lines, line)
			line = w
		}
		lines = append(lines, line)
	}

	// trailing blank lines only add height
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for _, l := range lines {
		if w := measure(l); w > width {
			width = w
		}
	}
	return lines, width
}
