// Package corpus resolves document paths and reads their text.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Document is one unit of text to match, named by where it came from.
type Document struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Expand resolves glob patterns to file paths, keeping pattern order. Each
// pattern's matches are sorted. A pattern that matches nothing is logged and
// skipped.
func Expand(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			slog.Warn("pattern matched no files", "pattern", pattern)
			continue
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

// Load reads the documents stored at path. HTML files (.html, .htm) are
// reduced to their text, JSONL files (.jsonl) yield one document per line
// and anything else is one plain-text document.
func Load(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return []Document{{Name: path, Text: StripHTML(string(data))}}, nil
	case ".jsonl":
		return loadJSONL(path, data)
	default:
		return []Document{{Name: path, Text: string(data)}}, nil
	}
}

// LoadAll loads every path in order.
func LoadAll(paths []string) ([]Document, error) {
	var docs []Document
	for _, path := range paths {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

func loadJSONL(path string, data []byte) ([]Document, error) {
	var docs []Document
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			slog.Warn("skipping malformed JSON line", "path", path, "line", line, "err", err)
			continue
		}
		if doc.Name == "" {
			doc.Name = fmt.Sprintf("%s#%d", path, line)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return docs, nil
}

// StripHTML returns the text nodes of an HTML document separated by spaces.
// Script and style contents are dropped. Input that fails to parse is
// returned unchanged.
func StripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
