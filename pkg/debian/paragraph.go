package debian

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Paragraph is one RFC822-style stanza of control fields.
type Paragraph map[string]string

// ParseControl reads a single control paragraph from in.
//
// Only the Description field honors continuation lines: indented lines
// following it are folded into the value joined by \n, keeping each
// continuation line's leading whitespace so the stanza can be re-emitted
// verbatim. Continuation lines under any other field are ignored.
func ParseControl(in io.Reader) (Paragraph, error) {
	graph := Paragraph{}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var inDescription bool
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(graph) > 0 {
				break
			}
			continue
		}

		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if inDescription {
				graph["Description"] += "\n" + line
			}
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		inDescription = key == "Description"
		graph[key] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading control data: %w", err)
	}

	if len(graph) == 0 {
		return nil, nil
	}
	return graph, nil
}

// WriteControl writes a paragraph as Key: value lines, in the given key
// order. Keys absent from the paragraph are skipped.
func WriteControl(w io.Writer, graph Paragraph, order []string) error {
	for _, key := range order {
		value, ok := graph[key]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", key, value); err != nil {
			return err
		}
	}
	return nil
}
