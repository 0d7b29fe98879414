// Package parser splits YAML frontmatter from Markdown bodies and renders
// them back together.
package parser

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/kenaz-migrate/internal/apperr"
	"github.com/starford/kenaz-migrate/internal/models"
)

const delim = "---"

// Result holds the output of parsing a Markdown file.
type Result struct {
	Header models.Header
	Body   string
}

// Parse separates YAML frontmatter (between leading --- delimiters) from the
// Markdown body. Without frontmatter the whole input is body and Header is
// empty. Frontmatter that is not a valid YAML mapping yields
// apperr.ErrInvalidFrontmatter.
func Parse(data []byte) (*Result, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim+"\n")) && !bytes.HasPrefix(trimmed, []byte(delim+"\r\n")) {
		return &Result{Header: models.Header{}, Body: string(data)}, nil
	}

	// Find end delimiter. The opening line's newline is kept so an empty
	// block ("---\n---") still finds its closing line.
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter, treat everything as body.
		return &Result{Header: models.Header{}, Body: string(data)}, nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	// The closing delimiter must end its line.
	if len(afterDelim) > 0 && afterDelim[0] != '\n' && afterDelim[0] != '\r' {
		return &Result{Header: models.Header{}, Body: string(data)}, nil
	}
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var doc yaml.Node
	if err := yaml.Unmarshal(yamlBlock, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidFrontmatter, err)
	}
	var fm map[string]any
	if len(doc.Content) > 0 {
		keepTimestamps(&doc)
		if err := doc.Decode(&fm); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidFrontmatter, err)
		}
	}
	if fm == nil {
		fm = map[string]any{}
	}
	return &Result{Header: models.Header(fm), Body: body}, nil
}

// keepTimestamps retags timestamp scalars as strings so dates keep their
// written form instead of decoding to time.Time.
func keepTimestamps(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		keepTimestamps(c)
	}
}

// Render serializes header as YAML frontmatter followed by body. Keys listed
// in order come first in that order; the remaining keys follow sorted.
func Render(header models.Header, order []string, body string) ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range orderedKeys(header, order) {
		var val yaml.Node
		if err := val.Encode(header[key]); err != nil {
			return nil, fmt.Errorf("parser: encode %q: %w", key, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&val,
		)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	if len(node.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return nil, fmt.Errorf("parser: encode header: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("parser: encode header: %w", err)
		}
	}
	buf.WriteString(delim + "\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

func orderedKeys(header models.Header, order []string) []string {
	keys := make([]string, 0, len(header))
	seen := make(map[string]struct{}, len(header))
	for _, k := range order {
		if _, ok := header[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	var rest []string
	for k := range header {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
