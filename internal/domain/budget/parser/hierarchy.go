package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// capitalNumerals maps the financial (capital) Chinese numerals used in
// outline numbering to their values.
var capitalNumerals = map[string]int{
	"壹": 1, "貳": 2, "參": 3, "叁": 3, "肆": 4,
	"伍": 5, "陸": 6, "柒": 7, "捌": 8, "玖": 9, "拾": 10,
}

var (
	// sectionCode matches outline codes such as 壹, 貳拾 or 參.2.壹.
	sectionCode = regexp.MustCompile(`^[壹貳參叁肆伍陸柒捌玖拾]{1,3}(\.[壹貳參叁肆伍陸柒捌玖拾\d]+)*$`)
	allDigits   = regexp.MustCompile(`^\d+$`)
	digitRun    = regexp.MustCompile(`\d+`)
)

// ParseHierarchy splits a dotted outline code into its numeric path.
//
// Each segment is a capital numeral, a run of ASCII digits, or mixed text
// whose last digit run is used. Segments with nothing numeric are dropped.
// The returned path is nil when no segment yields a number.
func ParseHierarchy(code string) (string, []int) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", nil
	}

	var numeric []int
	for _, part := range strings.Split(code, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if n, ok := capitalNumerals[part]; ok {
			numeric = append(numeric, n)
			continue
		}

		if allDigits.MatchString(part) {
			if n, err := strconv.Atoi(part); err == nil {
				numeric = append(numeric, n)
			}
			continue
		}

		runs := digitRun.FindAllString(part, -1)
		if len(runs) == 0 {
			continue
		}
		if n, err := strconv.Atoi(runs[len(runs)-1]); err == nil {
			numeric = append(numeric, n)
		}
	}

	return code, numeric
}
