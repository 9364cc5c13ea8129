// Package parser reads rapid-log text: one bullet per line, with optional
// YAML front matter naming the target collection.
//
//	---
//	collection: May 2026
//	---
//	t Call the bank
//	  t Find the account number
//	x Pay rent
//	n Landlord prefers email
//	e 2026-05-14 Dentist
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/folio/internal/models"
)

// ErrSyntax is returned for lines that cannot be read.
var ErrSyntax = errors.New("parser: syntax error")

var eventDateRe = regexp.MustCompile(`^\[?(\d{4}-\d{2}-\d{2})\]?(?:\s+|$)`)

// bullets maps line prefixes to entry types. Longer prefixes come first.
var bullets = []struct {
	prefix string
	typ    models.EntryType
	done   bool
}{
	{"- [ ] ", models.TypeTask, false},
	{"- [x] ", models.TypeTask, true},
	{"t ", models.TypeTask, false},
	{"* ", models.TypeTask, false},
	{"• ", models.TypeTask, false},
	{"x ", models.TypeTask, true},
	{"n ", models.TypeNote, false},
	{"- ", models.TypeNote, false},
	{"e ", models.TypeEvent, false},
	{"o ", models.TypeEvent, false},
}

// Item is one captured entry.
type Item struct {
	Line      int
	Type      models.EntryType
	Text      string
	Done      bool
	EventDate *time.Time
	// Children holds indented tasks written under a task.
	Children []Item
}

// Result holds the output of parsing a capture.
type Result struct {
	Frontmatter map[string]interface{}
	// Collection is the front matter "collection" value, or the first H1
	// heading when there is none.
	Collection string
	Items      []Item
}

// Parse reads a capture. Lines without a bullet are tasks; blank lines are
// skipped.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	res := &Result{Frontmatter: fm, Collection: collectionName(fm)}
	offset := bytes.Count(data, []byte("\n")) - strings.Count(body, "\n")

	for i, raw := range strings.Split(body, "\n") {
		lineNo := offset + i + 1
		line := strings.TrimRight(raw, " \t\r")
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			if res.Collection == "" {
				res.Collection = strings.TrimSpace(trimmed[2:])
			}
			continue
		}

		item, err := parseLine(lineNo, trimmed)
		if err != nil {
			return nil, err
		}

		indented := len(trimmed) < len(line)
		if indented && item.Type == models.TypeTask && len(res.Items) > 0 {
			parent := &res.Items[len(res.Items)-1]
			if parent.Type == models.TypeTask {
				parent.Children = append(parent.Children, item)
				continue
			}
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

func parseLine(lineNo int, s string) (Item, error) {
	item := Item{Line: lineNo, Type: models.TypeTask, Text: s}
	for _, b := range bullets {
		if s == strings.TrimRight(b.prefix, " ") {
			return Item{}, fmt.Errorf("%w: line %d: empty %s", ErrSyntax, lineNo, b.typ)
		}
		if strings.HasPrefix(s, b.prefix) {
			item.Type = b.typ
			item.Done = b.done
			item.Text = strings.TrimSpace(s[len(b.prefix):])
			break
		}
	}

	if item.Type == models.TypeEvent {
		if m := eventDateRe.FindStringSubmatch(item.Text); m != nil {
			d, err := time.Parse(time.DateOnly, m[1])
			if err != nil {
				return Item{}, fmt.Errorf("%w: line %d: invalid date %q", ErrSyntax, lineNo, m[1])
			}
			item.EventDate = &d
			item.Text = strings.TrimSpace(item.Text[len(m[0]):])
		}
	}
	if item.Text == "" {
		return Item{}, fmt.Errorf("%w: line %d: empty %s", ErrSyntax, lineNo, item.Type)
	}
	return item, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. If no frontmatter is found the entire content is body.
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
		return nil, "", fmt.Errorf("%w: front matter: %v", ErrSyntax, err)
	}
	return fm, body, nil
}

func collectionName(fm map[string]interface{}) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm["collection"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
