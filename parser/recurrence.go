package parser

import (
	"strings"
	"time"

	"remindme/model"
)

type recurrencePattern struct {
	phrase string
	rule   func() model.RecurrenceRule
}

// Priority-ordered phrase table. Order is load-bearing: specific phrases
// must come before the generic ones they contain ("every weekday" before
// "weekdays", "biweekly" before "weekly", "every monday" before "every
// day" never collide but weekday phrases are grouped first regardless).
// First match wins and at most one rule is extracted per input.
var recurrencePatterns = []recurrencePattern{
	{"every weekday", model.Weekdays},
	{"weekdays", model.Weekdays},
	{"every weekend", model.Weekends},
	{"weekends", model.Weekends},
	{"every sunday", func() model.RecurrenceRule { return model.Every(time.Sunday) }},
	{"every monday", func() model.RecurrenceRule { return model.Every(time.Monday) }},
	{"every tuesday", func() model.RecurrenceRule { return model.Every(time.Tuesday) }},
	{"every wednesday", func() model.RecurrenceRule { return model.Every(time.Wednesday) }},
	{"every thursday", func() model.RecurrenceRule { return model.Every(time.Thursday) }},
	{"every friday", func() model.RecurrenceRule { return model.Every(time.Friday) }},
	{"every saturday", func() model.RecurrenceRule { return model.Every(time.Saturday) }},
	{"every day", model.Daily},
	{"everyday", model.Daily},
	{"daily", model.Daily},
	{"every other week", model.Biweekly},
	{"biweekly", model.Biweekly},
	{"every week", model.Weekly},
	{"weekly", model.Weekly},
	{"every month", model.Monthly},
	{"monthly", model.Monthly},
	{"every year", model.Yearly},
	{"yearly", model.Yearly},
	{"annually", model.Yearly},
}

// extractRecurrence scans the working text against the pattern table,
// removes the first matched phrase and returns the corresponding rule.
func extractRecurrence(text string) (*model.RecurrenceRule, string) {
	lower := lowerASCII(text)
	for _, pattern := range recurrencePatterns {
		idx := strings.Index(lower, pattern.phrase)
		if idx < 0 {
			continue
		}
		rule := pattern.rule()
		return &rule, removeSpan(text, idx, idx+len(pattern.phrase))
	}
	return nil, text
}
