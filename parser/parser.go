// Package parser turns free-form reminder text into a structured title,
// schedule and recurrence rule. It runs a fixed pipeline of extraction
// stages; each stage removes the span it matched so later stages and the
// final title never see the same text twice.
package parser

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"remindme/model"
)

// ParsedInput is the parser's output. A nil ScheduledDate means the task
// goes to the inbox; HasSpecificTime is true only when a clock time was
// detected, not just a calendar date.
type ParsedInput struct {
	Title           string
	ScheduledDate   *time.Time
	HasSpecificTime bool
	Recurrence      *model.RecurrenceRule
}

type Parser struct {
	now  func() time.Time
	when *when.Parser
}

// New returns a parser reading the wall clock.
func New() *Parser {
	return NewWithClock(time.Now)
}

// NewWithClock returns a parser with an injected clock so "tomorrow" and
// friends resolve deterministically in tests.
func NewWithClock(now func() time.Time) *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{now: now, when: w}
}

// Parse never fails: unparseable text degrades to a title equal to the
// cleaned-up input with no date or recurrence.
func (p *Parser) Parse(input string) ParsedInput {
	text := strings.TrimSpace(input)
	if text == "" {
		return ParsedInput{}
	}
	now := p.now()

	text = stripReminderPrefix(text)

	rule, text := extractRecurrence(text)

	date, hasTime, text := p.extractDateTime(text, now)

	title := cleanTitle(text)

	// A bare recurring task still gets a concrete first occurrence.
	if rule != nil && date == nil {
		next := rule.NextOccurrence(now)
		date = &next
	}

	return ParsedInput{
		Title:           title,
		ScheduledDate:   date,
		HasSpecificTime: hasTime,
		Recurrence:      rule,
	}
}

// lowerASCII lowercases A-Z only. All pattern tables are ASCII, and
// byte-for-byte length preservation keeps match offsets valid against the
// original text, which full Unicode lowering does not guarantee.
func lowerASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// removeSpan cuts text[start:end] out of text.
func removeSpan(text string, start, end int) string {
	return text[:start] + text[end:]
}
