package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Stage (a): numeric relative durations, "in 5 mins".
var numericDurationRe = regexp.MustCompile(
	`(?i)\bin (\d+) (seconds?|secs?|minutes?|mins?|hours?|hrs?)\b`)

// Stage (b): spelled-out durations, "in five minutes". Longer alternatives
// come first so "forty-five" is not consumed as "forty" and "an" not as "a".
var wordDurationRe = regexp.MustCompile(
	`(?i)\bin (one|two|three|four|five|six|seven|eight|nine|ten|fifteen|twenty|thirty|forty-five|forty|half|an|a) (?:an )?(minutes?|mins?|hours?|hrs?)\b`)

var wordNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"fifteen": 15, "twenty": 20, "thirty": 30,
	"forty": 40, "forty-five": 45,
	"half": 30, "a": 1, "an": 1,
}

// Stage (e): standalone 12-hour clock time, "at 7pm", "7:30 pm".
var clockTimeRe = regexp.MustCompile(
	`(?i)\b(?:at )?(\d{1,2})(?::(\d{2}))? ?(am|pm)\b`)

type relativePhrase struct {
	phrase  string
	resolve func(now time.Time) (time.Time, bool)
}

// Stage (c): fixed relative phrases. Longer phrases must precede the
// shorter ones they contain ("tomorrow morning" before "tomorrow"),
// otherwise the generic phrase wins first by substring containment.
var relativePhrases = []relativePhrase{
	{"tomorrow morning", func(now time.Time) (time.Time, bool) {
		return atHour(now.AddDate(0, 0, 1), 9, 0), true
	}},
	{"tomorrow evening", func(now time.Time) (time.Time, bool) {
		return atHour(now.AddDate(0, 0, 1), 18, 0), true
	}},
	{"tomorrow night", func(now time.Time) (time.Time, bool) {
		return atHour(now.AddDate(0, 0, 1), 20, 0), true
	}},
	{"this morning", func(now time.Time) (time.Time, bool) {
		return atHour(now, 9, 0), true
	}},
	{"this afternoon", func(now time.Time) (time.Time, bool) {
		return atHour(now, 14, 0), true
	}},
	{"this evening", func(now time.Time) (time.Time, bool) {
		return atHour(now, 18, 0), true
	}},
	{"tonight", func(now time.Time) (time.Time, bool) {
		return atHour(now, 20, 0), true
	}},
	{"tomorrow", func(now time.Time) (time.Time, bool) {
		return startOfDay(now.AddDate(0, 0, 1)), false
	}},
	{"today", func(now time.Time) (time.Time, bool) {
		return startOfDay(now), false
	}},
	{"next week", func(now time.Time) (time.Time, bool) {
		return now.AddDate(0, 0, 7), false
	}},
	{"next month", func(now time.Time) (time.Time, bool) {
		return now.AddDate(0, 1, 0), false
	}},
}

// extractDateTime runs the date/time sub-stages in their fixed order. Each
// stage consumes the residue left by the previous one and removes its own
// matched span.
func (p *Parser) extractDateTime(text string, now time.Time) (*time.Time, bool, string) {
	var date *time.Time
	hasTime := false

	// (a) numeric relative duration
	if m := numericDurationRe.FindStringSubmatchIndex(text); m != nil {
		n, _ := strconv.Atoi(text[m[2]:m[3]])
		unit := durationUnit(lowerASCII(text[m[4]:m[5]]))
		resolved := now.Add(time.Duration(n) * unit)
		date = &resolved
		hasTime = true
		text = removeSpan(text, m[0], m[1])
	}

	// (b) word-number relative duration, only when (a) found nothing
	if date == nil {
		if m := wordDurationRe.FindStringSubmatchIndex(text); m != nil {
			word := lowerASCII(text[m[2]:m[3]])
			n := wordNumbers[word]
			unit := durationUnit(lowerASCII(text[m[4]:m[5]]))
			if word == "half" && unit == time.Hour {
				// "in half an hour" means thirty minutes, not thirty hours
				unit = time.Minute
			}
			resolved := now.Add(time.Duration(n) * unit)
			date = &resolved
			hasTime = true
			text = removeSpan(text, m[0], m[1])
		}
	}

	// (c) fixed relative phrases
	if date == nil {
		lower := lowerASCII(text)
		for _, rel := range relativePhrases {
			idx := strings.Index(lower, rel.phrase)
			if idx < 0 {
				continue
			}
			resolved, withTime := rel.resolve(now)
			date = &resolved
			hasTime = withTime
			text = removeSpan(text, idx, idx+len(rel.phrase))
			break
		}
	}

	// (d) generic natural-date detection over whatever remains
	if result, err := p.when.Parse(text, now); err == nil && result != nil {
		matched := lowerASCII(result.Text)
		timeLike := strings.Contains(matched, "am") ||
			strings.Contains(matched, "pm") ||
			strings.Contains(matched, ":") ||
			strings.Contains(matched, "o'clock") ||
			strings.Contains(matched, "noon") ||
			strings.Contains(matched, "midnight")

		if date != nil {
			// A date is already fixed; only take a clock time from the
			// match and lay it over the earlier date.
			if timeLike {
				combined := atHour(*date, result.Time.Hour(), result.Time.Minute())
				date = &combined
				hasTime = true
			}
		} else {
			resolved := result.Time
			date = &resolved
			hasTime = timeLike
		}
		// Always drop the matched span from the title, used or not.
		text = removeSpan(text, result.Index, result.Index+len(result.Text))
	}

	// (e) standalone 12-hour clock time on the final residue
	if m := clockTimeRe.FindStringSubmatchIndex(text); m != nil {
		hour, _ := strconv.Atoi(text[m[2]:m[3]])
		minute := 0
		if m[4] >= 0 {
			minute, _ = strconv.Atoi(text[m[4]:m[5]])
		}
		meridiem := lowerASCII(text[m[6]:m[7]])
		if meridiem == "pm" && hour < 12 {
			hour += 12
		} else if meridiem == "am" && hour == 12 {
			hour = 0
		}
		if hour <= 23 && minute <= 59 {
			base := now
			if date != nil {
				base = *date
			}
			resolved := atHour(base, hour, minute)
			date = &resolved
			hasTime = true
		}
		text = removeSpan(text, m[0], m[1])
	}

	return date, hasTime, text
}

func durationUnit(word string) time.Duration {
	switch {
	case strings.HasPrefix(word, "sec"):
		return time.Second
	case strings.HasPrefix(word, "min"):
		return time.Minute
	default:
		return time.Hour
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func atHour(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}
