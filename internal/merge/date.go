package merge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Precision of a parsed date, matching the specificity of the input text.
type Precision int

const (
	PrecisionYear Precision = iota
	PrecisionMonth
	PrecisionDay
)

// Date is a parsed date value with the precision the source text supports.
type Date struct {
	Year      int
	Month     int
	Day       int
	Precision Precision
}

// String renders the date in its canonical form, the form claim values are
// compared in: "1680", "1680-05", "1680-05-12".
func (d Date) String() string {
	switch d.Precision {
	case PrecisionDay:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	case PrecisionMonth:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		return strconv.Itoa(d.Year)
	}
}

// ParseError reports date text the parser could not make sense of. Callers
// surface it to the operator and ask whether to skip the candidate.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable date %q", e.Raw)
}

var (
	isoDate    = regexp.MustCompile(`^(\d{3,4})(?:-(\d{1,2})(?:-(\d{1,2}))?)?$`)
	dottedDate = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{3,4})$`)
	yearOnly   = regexp.MustCompile(`^(?:um |ca\. ?|c\. ?)?(\d{3,4})$`)
)

// ParseDate parses raw date text into a Date. Accepted forms are ISO-style
// ("1680", "1680-05", "1680-05-12"), the dotted day-first form European
// catalogs print ("12.05.1680"), and a bare year with a circa marker.
func ParseDate(raw string) (Date, error) {
	text := strings.TrimSpace(raw)

	if m := isoDate.FindStringSubmatch(text); m != nil {
		date := Date{Precision: PrecisionYear}
		date.Year, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			date.Month, _ = strconv.Atoi(m[2])
			date.Precision = PrecisionMonth
		}
		if m[3] != "" {
			date.Day, _ = strconv.Atoi(m[3])
			date.Precision = PrecisionDay
		}
		if date.Month > 12 || date.Day > 31 {
			return Date{}, &ParseError{Raw: raw}
		}
		return date, nil
	}

	if m := dottedDate.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month > 12 || day > 31 {
			return Date{}, &ParseError{Raw: raw}
		}
		return Date{Year: year, Month: month, Day: day, Precision: PrecisionDay}, nil
	}

	if m := yearOnly.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		return Date{Year: year, Precision: PrecisionYear}, nil
	}

	return Date{}, &ParseError{Raw: raw}
}
