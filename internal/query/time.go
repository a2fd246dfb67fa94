package query

import (
	"regexp"
	"sort"
	"strconv"
)

var (
	yearPattern    = regexp.MustCompile(`\b((?:18|19|20)\d{2})\b`)
	rangePattern   = regexp.MustCompile(`\b((?:18|19|20)\d{2})\s*(?:-|–|to)\s*((?:18|19|20)\d{2})\b`)
	monthlyPattern = regexp.MustCompile(`^\d{4}M\d{2}$`)
)

// ExtractYears finds the explicit years a question asks for. A range such as
// "2015-2020" or "2015 to 2020" expands to every year in the inclusive span,
// regardless of the order the endpoints were written in. Returns years as
// sorted, distinct 4-digit strings; empty when the question names none.
func ExtractYears(question string) []string {
	seen := make(map[int]struct{})

	for _, m := range rangePattern.FindAllStringSubmatch(question, -1) {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		if start > end {
			start, end = end, start
		}
		for y := start; y <= end; y++ {
			seen[y] = struct{}{}
		}
	}

	// Strip ranges before scanning single years so endpoints are not
	// double-counted with stale context.
	remainder := rangePattern.ReplaceAllString(question, " ")
	for _, m := range yearPattern.FindAllStringSubmatch(remainder, -1) {
		y, _ := strconv.Atoi(m[1])
		seen[y] = struct{}{}
	}

	if len(seen) == 0 {
		return nil
	}

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]string, len(years))
	for i, y := range years {
		out[i] = strconv.Itoa(y)
	}
	return out
}

// isMonthlyCodes reports whether time codes follow the YYYYMmm monthly form.
func isMonthlyCodes(codes []string) bool {
	for _, c := range codes {
		if monthlyPattern.MatchString(c) {
			return true
		}
	}
	return false
}

// yearPrefix returns the leading 4-digit year of a time code.
func yearPrefix(code string) string {
	if len(code) >= 4 {
		return code[:4]
	}
	return code
}
