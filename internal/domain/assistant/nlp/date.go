package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

var (
	relativeDayPattern = regexp.MustCompile(`\b(anteontem|ontem|hoje)\b`)
	numericDatePattern = regexp.MustCompile(`\b(?:dia )?(\d{1,2})/(\d{1,2})(?:/(\d{2}|\d{4}))?\b`)
	dayOfMonthPattern  = regexp.MustCompile(`\bdia (\d{1,2})\b`)

	isoMonthPattern   = regexp.MustCompile(`\b(\d{4})-(\d{2})\b`)
	namedMonthPattern = regexp.MustCompile(`\b(janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)(?: de (\d{4}))?\b`)
	lastMonthPattern  = regexp.MustCompile(`\bmes (?:passado|anterior)\b`)

	relativeOffsets = map[string]int{"hoje": 0, "ontem": -1, "anteontem": -2}

	monthNames = map[string]time.Month{
		"janeiro": time.January, "fevereiro": time.February, "marco": time.March,
		"abril": time.April, "maio": time.May, "junho": time.June,
		"julho": time.July, "agosto": time.August, "setembro": time.September,
		"outubro": time.October, "novembro": time.November, "dezembro": time.December,
	}
)

// ExtractDate finds the first date mention in normalized text. found is false
// when the text names no date, in which case date is the day of now.
func ExtractDate(text string, now time.Time) (date time.Time, found bool) {
	d, spans := extractDate(text, now)
	return d, len(spans) > 0
}

// extractDate returns the resolved day and the spans of every date mention so
// the amount parser never reads "12/03" or "dia 5" as money.
func extractDate(text string, now time.Time) (time.Time, []span) {
	today := startOfDay(now)
	var (
		spans []span
		first *time.Time
		pos   = len(text) + 1
	)
	consider := func(d time.Time, start, end int) {
		spans = append(spans, span{start, end})
		if start < pos {
			pos = start
			day := d
			first = &day
		}
	}

	for _, m := range relativeDayPattern.FindAllStringSubmatchIndex(text, -1) {
		consider(today.AddDate(0, 0, relativeOffsets[text[m[2]:m[3]]]), m[0], m[1])
	}
	for _, m := range numericDatePattern.FindAllStringSubmatchIndex(text, -1) {
		day, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		year := today.Year()
		if m[6] != -1 {
			year, _ = strconv.Atoi(text[m[6]:m[7]])
			if year < 100 {
				year += 2000
			}
		}
		if d, ok := validDate(year, month, day, now.Location()); ok {
			consider(d, m[0], m[1])
		}
	}
	for _, m := range dayOfMonthPattern.FindAllStringSubmatchIndex(text, -1) {
		if isClaimed(spans, m[2], m[3]) {
			continue
		}
		day, _ := strconv.Atoi(text[m[2]:m[3]])
		d, ok := validDate(today.Year(), int(today.Month()), day, now.Location())
		if !ok {
			continue
		}
		if d.After(today) {
			// "dia 28" said on the 3rd refers to last month.
			prev := today.AddDate(0, -1, 0)
			if d, ok = validDate(prev.Year(), int(prev.Month()), day, now.Location()); !ok {
				continue
			}
		}
		consider(d, m[0], m[1])
	}

	if first == nil {
		return today, spans
	}
	return *first, spans
}

// ExtractMonth resolves the month a read request refers to as yyyy-MM,
// defaulting to the month of now.
func ExtractMonth(text string, now time.Time) string {
	if m := isoMonthPattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 {
			return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location()).Format(monthLayout)
		}
	}
	if lastMonthPattern.MatchString(text) {
		return firstOfMonth(now).AddDate(0, -1, 0).Format(monthLayout)
	}
	if m := namedMonthPattern.FindStringSubmatch(text); m != nil {
		year := now.Year()
		if m[2] != "" {
			year, _ = strconv.Atoi(m[2])
		} else if monthNames[m[1]] > now.Month() {
			// A month later than the current one, said without a year,
			// refers to last year.
			year--
		}
		return time.Date(year, monthNames[m[1]], 1, 0, 0, 0, 0, now.Location()).Format(monthLayout)
	}
	return now.Format(monthLayout)
}

// FormatDate renders a day the way slots carry it.
func FormatDate(t time.Time) string { return t.Format(dateLayout) }

// FormatMonth renders a month the way slots carry it.
func FormatMonth(t time.Time) string { return t.Format(monthLayout) }

func validDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func isDateWord(w string) bool {
	_, ok := relativeOffsets[strings.TrimSuffix(w, ",")]
	return ok
}
