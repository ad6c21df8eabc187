// SPDX-License-Identifier: GPL-3.0-or-later

package matcher

import "regexp"

// NewRegExpMatcher creates a matcher from a regular expression (RE2 syntax, partial match).
// Expressions without metacharacters (optionally anchored with ^ and $, escaped
// metacharacters allowed) are turned into string matchers.
func NewRegExpMatcher(expr string) (Matcher, error) {
	switch expr {
	case "", "^", "$":
		return TRUE(), nil
	case "^$", "$^":
		return NewStringMatcher("", true, true)
	}

	chars := []rune(expr)
	start, end := 0, len(chars)-1

	startWith := chars[start] == '^'
	if startWith {
		start++
	}
	endWith := chars[end] == '$'
	if endWith {
		end--
	}

	literal, ok := unescapeLiteral(chars[start : end+1])
	if !ok {
		return regexp.Compile(expr)
	}

	return NewStringMatcher(literal, startWith, endWith)
}

// NewFullRegExpMatcher creates a matcher that succeeds only when expr matches the whole input.
// Literal expressions are turned into a full string matcher.
func NewFullRegExpMatcher(expr string) (Matcher, error) {
	if literal, ok := unescapeLiteral([]rune(expr)); ok {
		return NewStringMatcher(literal, true, true)
	}
	return regexp.Compile("^(?:" + expr + ")$")
}

// unescapeLiteral returns the plain text of chars when it holds no unescaped metacharacters.
func unescapeLiteral(chars []rune) (string, bool) {
	literal := make([]rune, 0, len(chars))
	for i := 0; i < len(chars); i++ {
		ch := chars[i]
		if ch != '\\' {
			if isRegExpMeta(ch) {
				return "", false
			}
			literal = append(literal, ch)
			continue
		}
		// trailing '\' is invalid, '\' followed by a non-meta char has a special meaning (\d, \w...)
		if i == len(chars)-1 || !isRegExpMeta(chars[i+1]) {
			return "", false
		}
		literal = append(literal, chars[i+1])
		i++
	}
	return string(literal), true
}

// isRegExpMeta reports whether byte b needs to be escaped by QuoteMeta.
func isRegExpMeta(b rune) bool {
	switch b {
	case '\\', '.', '+', '*', '?', '(', ')', '|', '[', ']', '{', '}', '^', '$':
		return true
	default:
		return false
	}
}
