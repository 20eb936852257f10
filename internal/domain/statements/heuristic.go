package statements

import (
	"regexp"
	"strings"
	"time"
)

// heuristicDateRes match a leading date token followed by the remainder of
// the line. First pattern that matches wins.
var heuristicDateRes = []*regexp.Regexp{
	regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(.+)$`),
	regexp.MustCompile(`^(\d{2}/\d{2}/\d{4})\s+(.+)$`),
	regexp.MustCompile(`^(\d{2}/\d{2}/\d{2})\s+(.+)$`),
	regexp.MustCompile(`^(\d{2}-\d{2}-\d{4})\s+(.+)$`),
}

// heuristicDateLayouts extends the normalizer's trial order with the
// two-digit-year form the line patterns admit.
var heuristicDateLayouts = append(append([]string{}, dateLayouts...), "01/02/06")

// amountTokenRe matches an amount-like token: optional parentheses, optional
// minus, optional dollar sign, digits with thousands separators, optional
// two-decimal fraction. RE2 has no lookarounds, so the word-boundary guards
// of the original token grammar are enforced in findAmountTokens.
var amountTokenRe = regexp.MustCompile(`\(?-?\$?\d[\d,]*(?:\.\d{2})?\)?`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// parseStatementLines is the last-resort extractor: no external calls, one
// candidate row per text line that carries a date, a description and a
// trailing amount. Lines producing an identical (date, amount, description)
// triple are folded into a single row.
func parseStatementLines(text string) []RawRow {
	var rows []RawRow
	seen := make(map[[3]string]struct{})

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(whitespaceRe.ReplaceAllString(rawLine, " "))
		if line == "" {
			continue
		}
		row, ok := parseStatementLine(line)
		if !ok {
			continue
		}
		key := [3]string{row.Date.String(), row.Amount.String(), row.Description.String()}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, row)
	}
	return rows
}

func parseStatementLine(line string) (RawRow, bool) {
	var txDate, rest string
	for _, re := range heuristicDateRes {
		if m := re.FindStringSubmatch(line); m != nil {
			date, ok := parseHeuristicDate(m[1])
			if !ok {
				return RawRow{}, false
			}
			txDate = date
			rest = strings.TrimSpace(m[2])
			break
		}
	}
	if txDate == "" || rest == "" {
		return RawRow{}, false
	}

	tokens := findAmountTokens(rest)
	if len(tokens) == 0 {
		return RawRow{}, false
	}
	// Rightmost token wins: statement layouts trail the amount after the
	// description.
	last := tokens[len(tokens)-1]
	amount, ok := normalizeAmount(rest[last[0]:last[1]])
	if !ok {
		return RawRow{}, false
	}

	description := strings.Trim(rest[:last[0]], " -\t")
	if len([]rune(description)) < 2 {
		return RawRow{}, false
	}

	return RawRow{
		Date:        FlexString(txDate),
		Amount:      FlexString(amount.Abs().String()),
		Description: FlexString(description),
		ExpenseType: FlexString(inferExpenseType("", description, amount)),
		Currency:    FlexString(defaultCurrency),
	}, true
}

func parseHeuristicDate(raw string) (string, bool) {
	for _, layout := range heuristicDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// findAmountTokens returns the [start, end) spans of amount-like tokens that
// are not glued to surrounding word characters. When a candidate runs into a
// trailing word character it is shrunk from the right until the boundary
// holds and the remainder still forms a valid token, mirroring how a
// backtracking engine with trailing-boundary guards would match.
func findAmountTokens(s string) [][2]int {
	var out [][2]int
	for _, loc := range amountTokenRe.FindAllStringIndex(s, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isWordByte(s[start-1]) {
			continue
		}
		for end > start {
			candidate := s[start:end]
			boundaryOK := end == len(s) || !isWordByte(s[end])
			if boundaryOK && fullAmountToken(candidate) {
				out = append(out, [2]int{start, end})
				break
			}
			end--
		}
	}
	return out
}

func fullAmountToken(s string) bool {
	loc := amountTokenRe.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}
