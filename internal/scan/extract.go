package scan

// ExtractBlock returns the first brace-delimited block at or after start in
// src, including the outer braces. The scan is lexical: brace depth is
// tracked while string literals and comments are skipped, so braces inside
// quotes or comments never open or unbalance a block. No syntax tree is
// built - this is a best-effort structural scan over untyped source text.
//
// Returns ok=false when no opening brace follows start or the block is left
// unclosed at end of input.
func ExtractBlock(src string, start int) (block string, ok bool) {
	if start < 0 || start >= len(src) {
		return "", false
	}

	open := -1
	depth := 0
	i := start
	for i < len(src) {
		c := src[i]
		switch c {
		case '\'', '"', '`':
			end, closed := skipString(src, i)
			if !closed {
				return "", false
			}
			i = end
			continue
		case '/':
			if i+1 < len(src) {
				switch src[i+1] {
				case '/':
					i = skipLineComment(src, i)
					continue
				case '*':
					end, closed := skipBlockComment(src, i)
					if !closed {
						return "", false
					}
					i = end
					continue
				}
			}
		case '{':
			if open == -1 {
				open = i
			}
			depth++
		case '}':
			if open != -1 {
				depth--
				if depth == 0 {
					return src[open : i+1], true
				}
			}
		}
		i++
	}

	return "", false
}

// skipString advances past a string literal starting at i (src[i] is the
// quote character). Backslash escapes are honored. Template literals are
// consumed to the closing backtick; interpolation placeholders are not
// descended into, which is acceptable for a best-effort scanner.
func skipString(src string, i int) (next int, closed bool) {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++ // skip escaped character
		case quote:
			return j + 1, true
		case '\n':
			// Single- and double-quoted literals do not span lines; treat a
			// bare newline as the end of a malformed literal and recover.
			if quote != '`' {
				return j + 1, true
			}
		}
	}
	return len(src), false
}

func skipLineComment(src string, i int) int {
	for j := i + 2; j < len(src); j++ {
		if src[j] == '\n' {
			return j + 1
		}
	}
	return len(src)
}

func skipBlockComment(src string, i int) (next int, closed bool) {
	for j := i + 2; j+1 < len(src); j++ {
		if src[j] == '*' && src[j+1] == '/' {
			return j + 2, true
		}
	}
	return len(src), false
}
