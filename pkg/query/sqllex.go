package query

import "strings"

// StatementKind returns the leading keyword of a SQL statement in upper
// case ("SELECT", "WITH", "UPDATE", ...), skipping whitespace, comments and
// opening parentheses. It returns "" when no keyword is found.
func StatementKind(sql string) string {
	n := len(sql)
	pos := 0
	for pos < n {
		switch {
		case isBlockCommentStart(sql, pos, n):
			pos = skipBlockComment(sql, pos, n)
		case isLineCommentStart(sql, pos, n):
			pos = skipLineComment(sql, pos, n)
		case isIdentStart(sql[pos]):
			word, _ := readBareword(sql, pos, n)
			return strings.ToUpper(word)
		case isSpace(sql[pos]) || sql[pos] == '(':
			pos++
		default:
			return ""
		}
	}
	return ""
}

// CountStatements returns how many non-empty statements PostgreSQL would
// run for sql under the simple query protocol. Semicolons inside quoted
// strings, quoted identifiers, dollar-quoted bodies and comments do not
// separate statements. An unterminated literal or comment swallows the
// rest of the text.
func CountStatements(sql string) int {
	n := len(sql)
	count := 0
	pending := false
	pos := 0
	for pos < n {
		ch := sql[pos]
		switch {
		case isBlockCommentStart(sql, pos, n):
			pos = skipBlockComment(sql, pos, n)
			continue
		case isLineCommentStart(sql, pos, n):
			pos = skipLineComment(sql, pos, n)
			continue
		case ch == ';':
			if pending {
				count++
				pending = false
			}
			pos++
			continue
		case isSpace(ch):
			pos++
			continue
		}

		pending = true
		switch {
		case ch == '\'':
			pos = skipQuoted(sql, pos, n, '\'', isEscapeString(sql, pos))
		case ch == '"':
			pos = skipQuoted(sql, pos, n, '"', false)
		case ch == '$':
			pos = skipDollar(sql, pos, n)
		case isIdentStart(ch):
			_, pos = readBareword(sql, pos, n)
		default:
			pos++
		}
	}
	if pending {
		count++
	}
	return count
}

// isBlockCommentStart returns true if pos is at the start of a block comment.
func isBlockCommentStart(sql string, pos, n int) bool {
	return sql[pos] == '/' && pos+1 < n && sql[pos+1] == '*'
}

// isLineCommentStart returns true if pos is at the start of a line comment.
func isLineCommentStart(sql string, pos, n int) bool {
	return sql[pos] == '-' && pos+1 < n && sql[pos+1] == '-'
}

// skipBlockComment advances past a /* ... */ block comment. PostgreSQL
// block comments nest.
func skipBlockComment(sql string, pos, n int) int {
	depth := 0
	for pos < n {
		switch {
		case isBlockCommentStart(sql, pos, n):
			depth++
			pos += 2
		case sql[pos] == '*' && pos+1 < n && sql[pos+1] == '/':
			depth--
			pos += 2
			if depth == 0 {
				return pos
			}
		default:
			pos++
		}
	}
	return n
}

// skipLineComment advances past a -- line comment to end of line.
func skipLineComment(sql string, pos, n int) int {
	pos += 2
	for pos < n && sql[pos] != '\n' {
		pos++
	}
	return pos
}

// isEscapeString reports whether the quote at pos opens an E'...' literal.
func isEscapeString(sql string, pos int) bool {
	if pos == 0 || (sql[pos-1] != 'E' && sql[pos-1] != 'e') {
		return false
	}
	return pos == 1 || !isIdentChar(sql[pos-2])
}

// skipQuoted advances past a literal or identifier opened by quote at pos.
// A doubled quote is part of the text; backslash escapes apply only to
// E'...' strings.
func skipQuoted(sql string, pos, n int, quote byte, backslash bool) int {
	pos++
	for pos < n {
		switch {
		case backslash && sql[pos] == '\\':
			pos += 2
		case sql[pos] == quote:
			if pos+1 < n && sql[pos+1] == quote {
				pos += 2
				continue
			}
			return pos + 1
		default:
			pos++
		}
	}
	return n
}

// skipDollar advances past a $tag$...$tag$ body starting at pos. A '$' that
// does not open a tag (a $1 parameter) is consumed alone.
func skipDollar(sql string, pos, n int) int {
	end := pos + 1
	for end < n && sql[end] != '$' {
		if !isIdentChar(sql[end]) || (end == pos+1 && sql[end] >= '0' && sql[end] <= '9') {
			return pos + 1
		}
		end++
	}
	if end >= n {
		return pos + 1
	}
	tag := sql[pos : end+1]
	if closing := strings.Index(sql[end+1:], tag); closing >= 0 {
		return end + 1 + closing + len(tag)
	}
	return n
}

// readBareword reads an unquoted identifier. As in PostgreSQL, '$' may
// continue an identifier, so "a$b$" is a name and not a dollar quote.
func readBareword(sql string, pos, n int) (word string, next int) {
	start := pos
	for pos < n && (isIdentChar(sql[pos]) || sql[pos] == '$') {
		pos++
	}
	return sql[start:pos], pos
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

// isIdentStart matches PostgreSQL, where any byte with the high bit set
// may start an identifier.
func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch >= 0x80
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
