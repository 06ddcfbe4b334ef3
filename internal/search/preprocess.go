package search

import (
	"bufio"
	"io"
	"strings"
)

// Entry is one FAQ item. Question may be empty for free-standing paragraphs.
type Entry struct {
	Question string
	Answer   string
}

// ParseFAQ reads a Markdown FAQ. Every heading starts an entry whose answer
// is the text up to the next heading. Text before the first heading becomes
// one entry per paragraph. Table rows are flattened into one line of cells;
// separator rows are dropped.
func ParseFAQ(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		out      []Entry
		question string
		inEntry  bool
		body     []string
	)
	flush := func() {
		answer := strings.TrimSpace(strings.Join(body, " "))
		if answer != "" {
			out = append(out, Entry{Question: question, Answer: answer})
		}
		body = body[:0]
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			if !inEntry {
				flush()
			}
		case strings.HasPrefix(line, "#"):
			flush()
			question = strings.TrimSpace(strings.TrimLeft(line, "#"))
			inEntry = true
		case strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|"):
			if row, ok := flattenTableRow(line); ok {
				body = append(body, row)
			}
		default:
			body = append(body, stripListMarker(line))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}

// flattenTableRow turns "| a | b |" into "a b". ok is false for separator
// rows such as "|---|:-:|" and rows with no content.
func flattenTableRow(line string) (string, bool) {
	cols := strings.Split(strings.Trim(line, "|"), "|")
	cells := make([]string, 0, len(cols))
	sep := true
	for _, c := range cols {
		cell := strings.TrimSpace(c)
		if strings.Trim(cell, ":-") != "" {
			sep = false
		}
		if cell != "" {
			cells = append(cells, cell)
		}
	}
	if sep || len(cells) == 0 {
		return "", false
	}
	return strings.Join(cells, " "), true
}

func stripListMarker(line string) string {
	for _, m := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(line, m) {
			return strings.TrimSpace(line[len(m):])
		}
	}
	return line
}
