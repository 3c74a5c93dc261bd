package ai

import (
	"errors"
	"regexp"
	"strings"
)

var (
	typeTagPattern    = regexp.MustCompile(`^\s*\[type:([a-z_]+)\]\s*`)
	productRefPattern = regexp.MustCompile(`\[\[product:([A-Za-z0-9_-]+)\]\]`)
	ErrEmptyReply     = errors.New("empty_reply")
)

// ParsedReply is the assistant text split into its rendering tag, body and
// referenced product ids.
type ParsedReply struct {
	ResponseType string
	Body         string
	ProductIDs   []string
}

// ParseReply reads the optional leading "[type:xxx]" tag and any
// "[[product:id]]" references. Untagged text is a plain "text" reply.
func ParseReply(text string) (ParsedReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ParsedReply{}, ErrEmptyReply
	}
	out := ParsedReply{ResponseType: "text"}
	if m := typeTagPattern.FindStringSubmatch(text); len(m) >= 2 {
		out.ResponseType = m[1]
		text = text[len(m[0]):]
	}
	seen := make(map[string]bool)
	for _, m := range productRefPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out.ProductIDs = append(out.ProductIDs, m[1])
		}
	}
	out.Body = strings.TrimSpace(productRefPattern.ReplaceAllString(text, ""))
	if out.Body == "" {
		return ParsedReply{}, ErrEmptyReply
	}
	return out, nil
}
