// internal/program/parser.go
package program

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// token is one comma-separated argument before type conversion
type token struct {
	text   string // unescaped content for quoted tokens, trimmed raw text otherwise
	quoted bool
}

// Parse converts DSL text into a Program. The first failing line aborts
// parsing and no partial program is returned.
func Parse(text string) (Program, error) {
	var prog Program

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" {
			continue
		}

		cmd, err := parseLine(line, i+1)
		if err != nil {
			return nil, err
		}
		prog = append(prog, cmd)
	}

	return prog, nil
}

// ParseLine parses a single command line
func ParseLine(line string) (Command, error) {
	return parseLine(strings.TrimSpace(line), 1)
}

func parseLine(line string, lineNo int) (Command, error) {
	name, rest := splitName(line)

	sigs, ok := byName[name]
	if !ok {
		return nil, &ParseError{
			Kind:   KindUnknownCommand,
			Line:   lineNo,
			Source: line,
			Detail: fmt.Sprintf("%q", name),
		}
	}

	tokens, err := tokenize(rest)
	if err != nil {
		return nil, &ParseError{
			Kind:     KindSyntax,
			Line:     lineNo,
			Source:   line,
			Expected: expectedSyntax(sigs),
			Detail:   err.Error(),
		}
	}

	var mismatch error
	for _, sig := range sigs {
		if len(sig.Args) != len(tokens) {
			continue
		}

		values, err := convert(sig.Args, tokens)
		if err != nil {
			mismatch = err
			continue
		}
		return sig.build(values), nil
	}

	if mismatch == nil {
		mismatch = fmt.Errorf("got %d argument(s)", len(tokens))
	}

	return nil, &ParseError{
		Kind:     KindArgumentMismatch,
		Line:     lineNo,
		Source:   line,
		Expected: expectedSyntax(sigs),
		Detail:   mismatch.Error(),
	}
}

// splitName separates the keyword from the argument text
func splitName(line string) (string, string) {
	idx := strings.IndexFunc(line, unicode.IsSpace)
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx:])
}

// tokenize splits argument text on commas that are outside double quotes
func tokenize(s string) ([]token, error) {
	if s == "" {
		return nil, nil
	}

	var (
		tokens []token
		i      int
	)

	for {
		// skip leading blanks of this argument
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}

		var tok token
		if i < len(s) && s[i] == '"' {
			text, next, err := readQuoted(s, i)
			if err != nil {
				return nil, err
			}
			tok = token{text: text, quoted: true}
			i = next

			for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
				i++
			}
			if i < len(s) && s[i] != ',' {
				return nil, fmt.Errorf("unexpected text after closing quote at column %d", i+1)
			}
		} else {
			start := i
			for i < len(s) && s[i] != ',' {
				if s[i] == '"' {
					return nil, fmt.Errorf("unexpected quote at column %d", i+1)
				}
				i++
			}
			tok = token{text: strings.TrimSpace(s[start:i])}
			if tok.text == "" {
				return nil, fmt.Errorf("empty argument at column %d", start+1)
			}
		}

		tokens = append(tokens, tok)

		if i >= len(s) {
			return tokens, nil
		}
		i++ // comma
		if i >= len(s) {
			return nil, fmt.Errorf("trailing comma")
		}
	}
}

// readQuoted reads a double-quoted string starting at s[start] and returns
// its unescaped content and the index just past the closing quote
func readQuoted(s string, start int) (string, int, error) {
	var b strings.Builder

	for i := start + 1; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			return b.String(), i + 1, nil
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("unterminated escape at column %d", i+1)
			}
			next := s[i+1]
			if next != '"' && next != '\\' {
				return "", 0, fmt.Errorf("unknown escape \\%c at column %d", next, i+1)
			}
			b.WriteByte(next)
			i++
		default:
			b.WriteByte(c)
		}
	}

	return "", 0, fmt.Errorf("unterminated quote starting at column %d", start+1)
}

// convert checks each token against its argument spec
func convert(specs []ArgSpec, tokens []token) ([]value, error) {
	values := make([]value, len(specs))

	for i, spec := range specs {
		tok := tokens[i]

		if spec.Type == ArgString {
			if !tok.quoted {
				return nil, fmt.Errorf("%s must be a double-quoted string", spec.Name)
			}
			values[i] = value{text: tok.text}
			continue
		}

		if tok.quoted {
			return nil, fmt.Errorf("%s must not be quoted", spec.Name)
		}

		switch spec.Type {
		case ArgBool:
			switch strings.ToLower(tok.text) {
			case "true":
				values[i] = value{flag: true}
			case "false":
				values[i] = value{flag: false}
			default:
				return nil, fmt.Errorf("%s must be true or false, got %q", spec.Name, tok.text)
			}

		case ArgUint:
			n, err := strconv.Atoi(tok.text)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%s must be a non-negative integer, got %q", spec.Name, tok.text)
			}
			if n < spec.Min || n > spec.Max {
				return nil, fmt.Errorf("%s must be between %d and %d, got %d", spec.Name, spec.Min, spec.Max, n)
			}
			values[i] = value{num: n}

		case ArgEnum:
			idx := -1
			for j, v := range spec.Values {
				if strings.EqualFold(v, tok.text) {
					idx = j
					break
				}
			}
			if idx < 0 {
				return nil, fmt.Errorf("%s must be one of %s, got %q", spec.Name, strings.Join(spec.Values, "|"), tok.text)
			}
			values[i] = value{num: idx}

		case ArgDigits:
			if !isDigits(tok.text) || len(tok.text) < spec.Min || len(tok.text) > spec.Max {
				return nil, fmt.Errorf("%s must be %d-%d digits, got %q", spec.Name, spec.Min, spec.Max, tok.text)
			}
			values[i] = value{text: tok.text}
		}
	}

	return values, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
