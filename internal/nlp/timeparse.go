package nlp

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Parser resolves natural-language time phrases ("tomorrow at 4pm", "next
// friday") into concrete instants.
type Parser struct {
	w *when.Parser
}

// NewParser returns a parser loaded with the English and common rule sets.
func NewParser() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w}
}

// Parse resolves phrase relative to ref in the given timezone. The second
// return value is false when the phrase is not understood.
func (p *Parser) Parse(phrase string, ref time.Time, loc *time.Location) (time.Time, bool) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	result, err := p.w.Parse(phrase, ref.In(loc))
	if err != nil || result == nil {
		return time.Time{}, false
	}
	return result.Time.In(loc), true
}
