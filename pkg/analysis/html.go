package analysis

import (
	"fmt"
	"html"
	"strings"
)

// markdownToHTML renders the report's Markdown subset: ATX headings,
// fenced code blocks, bullet lists, and paragraphs. It is not a general
// Markdown renderer and does not try to be one.
func markdownToHTML(md string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<style>body{font-family:sans-serif;max-width:72em;margin:2em auto;padding:0 1em}pre{background:#f4f4f4;padding:1em;overflow-x:auto}</style>\n")
	b.WriteString("</head>\n<body>\n")

	inCode := false
	inList := false
	closeList := func() {
		if inList {
			b.WriteString("</ul>\n")
			inList = false
		}
	}

	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "```") {
			closeList()
			if inCode {
				b.WriteString("</pre>\n")
			} else {
				b.WriteString("<pre>")
			}
			inCode = !inCode
			continue
		}
		if inCode {
			b.WriteString(html.EscapeString(line))
			b.WriteString("\n")
			continue
		}

		switch {
		case strings.HasPrefix(line, "### "):
			closeList()
			fmt.Fprintf(&b, "<h3>%s</h3>\n", html.EscapeString(line[4:]))
		case strings.HasPrefix(line, "## "):
			closeList()
			fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(line[3:]))
		case strings.HasPrefix(line, "# "):
			closeList()
			fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(line[2:]))
		case strings.HasPrefix(line, "- "):
			if !inList {
				b.WriteString("<ul>\n")
				inList = true
			}
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(line[2:]))
		case strings.TrimSpace(line) == "":
			closeList()
		default:
			closeList()
			fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(line))
		}
	}
	if inCode {
		b.WriteString("</pre>\n")
	}
	closeList()
	b.WriteString("</body>\n</html>\n")
	return b.String()
}
