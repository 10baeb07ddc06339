// Package ui holds the box drawing helpers shared by console tables and
// per-case log files.
package ui

import (
	"strings"
	"unicode/utf8"
)

// Tree hierarchy symbols using box drawing characters
const (
	TreeBranch     = "├── "
	TreeLastBranch = "└── "
	TreeContinue   = "│   "
	TreeIndent     = "    "

	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxVertical    = "│"
	BoxHorizontal  = "─"
	BoxTeeRight    = "├"
	BoxTeeLeft     = "┤"
)

// DefaultBoxWidth is the width of the result blocks written to case logs
const DefaultBoxWidth = 71

// TreeItemPrefix returns the connector for item i of n siblings
func TreeItemPrefix(i, n int) string {
	if i == n-1 {
		return TreeLastBranch
	}
	return TreeBranch
}

// BuildTreePrefix generates a prefix for an item at depth. parentIsLast
// tells, per ancestor level, whether that ancestor was the last sibling.
func BuildTreePrefix(depth int, isLast bool, parentIsLast []bool) string {
	if depth == 0 {
		return ""
	}

	var prefix strings.Builder
	for i := 0; i < depth-1; i++ {
		if i < len(parentIsLast) && parentIsLast[i] {
			prefix.WriteString(TreeIndent)
		} else {
			prefix.WriteString(TreeContinue)
		}
	}
	if isLast {
		prefix.WriteString(TreeLastBranch)
	} else {
		prefix.WriteString(TreeBranch)
	}
	return prefix.String()
}

// BuildBoxHeader creates a box header with the given title and width
func BuildBoxHeader(title string, width int) string {
	titleLen := utf8.RuneCountInString(title)
	if width < titleLen+4 { // minimum space for borders and padding
		width = titleLen + 4
	}
	padding := width - 4 - titleLen // account for "│ " and " │"

	header := BoxTopLeft + repeatString(BoxHorizontal, width-2) + BoxTopRight + "\n"
	header += BoxVertical + " " + title + repeatString(" ", padding+1) + BoxVertical + "\n"
	header += BoxTeeRight + repeatString(BoxHorizontal, width-2) + BoxTeeLeft + "\n"
	return header
}

// BuildBoxFooter creates a box footer with the given width
func BuildBoxFooter(width int) string {
	return BoxBottomLeft + repeatString(BoxHorizontal, width-2) + BoxBottomRight + "\n"
}

// BuildBoxLine creates a content line within a box, truncating content
// that does not fit
func BuildBoxLine(content string, width int) string {
	maxContentLen := width - 4
	content = Truncate(content, maxContentLen)
	padding := maxContentLen - utf8.RuneCountInString(content)
	return BoxVertical + " " + content + repeatString(" ", padding+1) + BoxVertical + "\n"
}

// BuildBox renders a titled box around the given lines
func BuildBox(title string, lines []string, width int) string {
	var b strings.Builder
	b.WriteString(BuildBoxHeader(Truncate(title, width-4), width))
	for _, line := range lines {
		b.WriteString(BuildBoxLine(line, width))
	}
	b.WriteString(BuildBoxFooter(width))
	return b.String()
}

// Truncate shortens s to at most maxLen runes, ending it with an ellipsis
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:max(maxLen, 0)])
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

func repeatString(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(s, n)
}
