package store

import "strings"

// SplitStatements splits a SQL script on semicolons that end a statement.
// Semicolons inside quoted strings, quoted identifiers and comments do not
// split. Empty statements are dropped.
func SplitStatements(script string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote rune // active quote character, 0 when none
	)

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if quote != 0 {
			cur.WriteRune(r)
			if r == quote {
				// A doubled quote is an escaped quote.
				if i+1 < len(runes) && runes[i+1] == quote {
					cur.WriteRune(runes[i+1])
					i++
					continue
				}
				quote = 0
			}
			continue
		}

		switch {
		case r == '\'' || r == '"' || r == '`':
			quote = r
			cur.WriteRune(r)
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			cur.WriteRune('\n')
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
			cur.WriteRune(' ')
		case r == ';':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
