// Package parser turns catalog Markdown files (YAML frontmatter plus body)
// into linked records and back.
package parser

import (
	"bytes"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/tourdesk/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Frontmatter keys mapped onto LinkedRecord fields. Every other key is kept
// in Attributes.
var reserved = map[string]struct{}{
	"id": {}, "name": {}, "title": {}, "location": {}, "url": {}, "tags": {},
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, tags and a title from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
	}, nil
}

// Record parses the catalog file at rel into a linked record of kind. The id
// comes from the "id" key, defaulting to the file name without extension.
func Record(kind models.LinkedKind, rel string, data []byte) (models.LinkedRecord, error) {
	res, err := Parse(data)
	if err != nil {
		return models.LinkedRecord{}, err
	}
	rec := models.LinkedRecord{
		Kind:        kind,
		ID:          strings.TrimSuffix(path.Base(rel), ".md"),
		Name:        res.Title,
		Description: strings.TrimSpace(stripHeading(res.Body, res.Title)),
		SourcePath:  rel,
	}
	if v := stringField(res.Frontmatter, "id"); v != "" {
		rec.ID = v
	}
	rec.Location = stringField(res.Frontmatter, "location")
	rec.URL = stringField(res.Frontmatter, "url")
	for k, v := range res.Frontmatter {
		if _, ok := reserved[k]; ok {
			continue
		}
		if rec.Attributes == nil {
			rec.Attributes = make(map[string]any)
		}
		rec.Attributes[k] = v
	}
	if len(res.Tags) > 0 {
		if rec.Attributes == nil {
			rec.Attributes = make(map[string]any)
		}
		rec.Attributes["tags"] = res.Tags
	}
	return rec, nil
}

// Render writes rec as a catalog Markdown file.
func Render(rec models.LinkedRecord) ([]byte, error) {
	fm := yaml.Node{Kind: yaml.MappingNode}
	add := func(k string, v any) error {
		var val yaml.Node
		if err := val.Encode(v); err != nil {
			return err
		}
		fm.Content = append(fm.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, &val)
		return nil
	}
	if err := add("id", rec.ID); err != nil {
		return nil, err
	}
	if rec.Name != "" {
		_ = add("name", rec.Name)
	}
	if rec.Location != "" {
		_ = add("location", rec.Location)
	}
	if rec.URL != "" {
		_ = add("url", rec.URL)
	}
	keys := make([]string, 0, len(rec.Attributes))
	for k := range rec.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := add(k, rec.Attributes[k]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&fm); err != nil {
		return nil, err
	}
	_ = enc.Close()
	buf.WriteString("---\n")
	if rec.Description != "" {
		buf.WriteString(strings.TrimSpace(rec.Description))
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: keep the whole file as body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractTags collects #tags from body and from the frontmatter "tags" list.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	if list, ok := fm["tags"].([]interface{}); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter "name" or "title" if present, otherwise
// the first H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	for _, key := range []string{"name", "title"} {
		if s := stringField(fm, key); s != "" {
			return s
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// stripHeading drops a leading "# title" line from body.
func stripHeading(body, title string) string {
	first, rest, _ := strings.Cut(body, "\n")
	if title != "" && strings.TrimSpace(first) == "# "+title {
		return rest
	}
	return body
}

func stringField(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	switch v := fm[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case int, int64, float64:
		b, _ := yaml.Marshal(v)
		return strings.TrimSpace(string(b))
	}
	return ""
}
