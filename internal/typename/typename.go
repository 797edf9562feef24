package typename

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"typelib/internal/typeerr"
)

// Separator is the namespace separator; absolute names start with it.
const Separator = "/"

const separators = "/<>[],"

// Tokenize splits name on the grammar separators. Separators are kept as
// single-character tokens, identifier tokens are trimmed and empty ones
// dropped.
func Tokenize(name string) []string {
	tokens := make([]string, 0, 8)
	start := 0
	flush := func(end int) {
		if tok := strings.TrimSpace(name[start:end]); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	for i := 0; i < len(name); i++ {
		if strings.IndexByte(separators, name[i]) < 0 {
			continue
		}
		flush(i)
		tokens = append(tokens, name[i:i+1])
		start = i + 1
	}
	flush(len(name))
	return tokens
}

// Normalize returns the canonical spelling of name: NFC-normalized, with the
// whitespace around separators removed.
func Normalize(name string) string {
	return strings.Join(Tokenize(norm.NFC.String(name)), "")
}

// IsAbsolute reports whether name starts with the namespace separator.
func IsAbsolute(name string) bool {
	return strings.HasPrefix(name, Separator)
}

// Split cuts name at its last top-level separator. The namespace keeps its
// trailing separator so that namespace+basename == name.
func Split(name string) (namespace, basename string) {
	cut := -1
	depth := 0
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case '/':
			if depth == 0 {
				cut = i
			}
		}
	}
	if cut < 0 {
		return "", name
	}
	return name[:cut+1], name[cut+1:]
}

// Join is the inverse of Split.
func Join(namespace, basename string) string {
	if namespace == "" {
		return basename
	}
	if !strings.HasSuffix(namespace, Separator) {
		namespace += Separator
	}
	return namespace + basename
}

// Namespace returns the namespace part of name, separator included.
func Namespace(name string) string {
	ns, _ := Split(name)
	return ns
}

// Basename returns the part of name after its last top-level separator.
func Basename(name string) string {
	_, base := Split(name)
	return base
}

// Parts returns the namespace components of name followed by its basename.
func Parts(name string) []string {
	ns, base := Split(name)
	parts := make([]string, 0, 4)
	for _, p := range strings.Split(ns, Separator) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if base != "" {
		parts = append(parts, base)
	}
	return parts
}

// InNamespace reports whether name lives in ns or one of its children.
func InNamespace(name, ns string) bool {
	if !strings.HasSuffix(ns, Separator) {
		ns += Separator
	}
	return strings.HasPrefix(Namespace(name), ns)
}

// ParseTemplate splits "Base<A,B<C,D>>" into its base and top-level
// arguments. Names without template arguments come back unchanged with nil
// arguments.
func ParseTemplate(name string) (base string, args []string) {
	open := strings.IndexByte(name, '<')
	if open < 0 {
		return name, nil
	}
	depth := 0
	argStart := open + 1
	for i := open; i < len(name); i++ {
		switch name[i] {
		case '<':
			depth++
		case ',':
			if depth == 1 {
				args = append(args, strings.TrimSpace(name[argStart:i]))
				argStart = i + 1
			}
		case '>':
			depth--
			if depth == 0 {
				args = append(args, strings.TrimSpace(name[argStart:i]))
				return name[:open], args
			}
		}
	}
	// unbalanced
	return name, nil
}

// Template builds "base<arg1,arg2>".
func Template(base string, args ...string) string {
	if len(args) == 0 {
		return base
	}
	return base + "<" + strings.Join(args, ",") + ">"
}

// SplitArray strips the outermost array suffix: "/int32[2][4]" is an array
// of four "/int32[2]".
func SplitArray(name string) (element string, length uint64, ok bool) {
	if !strings.HasSuffix(name, "]") {
		return name, 0, false
	}
	open := strings.LastIndexByte(name, '[')
	if open <= 0 {
		return name, 0, false
	}
	n, err := strconv.ParseUint(name[open+1:len(name)-1], 10, 64)
	if err != nil {
		return name, 0, false
	}
	return name[:open], n, true
}

// ArrayName builds the canonical name of an array of length elements.
func ArrayName(element string, length uint64) string {
	return element + "[" + strconv.FormatUint(length, 10) + "]"
}

type state uint8

const (
	stateNormal state = iota
	stateArray
)

// Validate checks name against the typename grammar. absolute requires a
// leading separator.
func Validate(name string, absolute bool) error {
	tokens := Tokenize(name)
	if len(tokens) == 0 {
		return typeerr.InvalidTypeName(name, "", "empty type name")
	}
	if absolute && tokens[0] != Separator {
		return typeerr.InvalidTypeName(name, tokens[0], "expected a leading "+Separator)
	}

	st := stateNormal
	depth := 0
	expectArg := false
	digits := false
	prev := ""
	for i, tok := range tokens {
		if st == stateArray {
			switch {
			case tok == "]":
				if !digits {
					return typeerr.InvalidTypeName(name, tok, "missing array length")
				}
				st = stateNormal
			case !digits && isDigits(tok):
				digits = true
			default:
				return typeerr.InvalidTypeName(name, tok, "array length must be a decimal integer")
			}
			prev = tok
			continue
		}

		if expectArg {
			expectArg = false
			if tok != Separator {
				if !isSignedInteger(tok) {
					return typeerr.InvalidTypeName(name, tok, "template argument must be an integer or an absolute type name")
				}
				prev = tok
				continue
			}
		}

		switch tok {
		case Separator:
			if i+1 >= len(tokens) || !startsWithLetter(tokens[i+1]) {
				frag := Separator
				if i+1 < len(tokens) {
					frag = tokens[i+1]
				}
				return typeerr.InvalidTypeName(name, frag, "expected an identifier after "+Separator)
			}
		case "<":
			if prev == "" || isSeparator(prev) {
				return typeerr.InvalidTypeName(name, tok, "template arguments need a base name")
			}
			depth++
			expectArg = true
		case ",":
			if depth == 0 {
				return typeerr.InvalidTypeName(name, tok, "',' outside template arguments")
			}
			expectArg = true
		case ">":
			if depth == 0 {
				return typeerr.InvalidTypeName(name, tok, "unbalanced '>'")
			}
			depth--
		case "[":
			if prev == "" || prev == "<" || prev == "," || prev == Separator {
				return typeerr.InvalidTypeName(name, tok, "array suffix needs an element type")
			}
			st = stateArray
			digits = false
		case "]":
			return typeerr.InvalidTypeName(name, tok, "unbalanced ']'")
		default:
			if prev == ">" || prev == "]" {
				return typeerr.InvalidTypeName(name, tok, "unexpected identifier")
			}
		}
		prev = tok
	}

	switch {
	case expectArg:
		return typeerr.InvalidTypeName(name, prev, "missing template argument")
	case st == stateArray:
		return typeerr.InvalidTypeName(name, prev, "unterminated array suffix")
	case depth != 0:
		return typeerr.InvalidTypeName(name, prev, "unbalanced '<'")
	}
	return nil
}

func isSeparator(tok string) bool {
	return len(tok) == 1 && strings.IndexByte(separators, tok[0]) >= 0
}

func startsWithLetter(tok string) bool {
	if tok == "" || isSeparator(tok) {
		return false
	}
	c := tok[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isDigits(tok string) bool {
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return false
		}
	}
	return true
}

func isSignedInteger(tok string) bool {
	if strings.HasPrefix(tok, "-") || strings.HasPrefix(tok, "+") {
		tok = tok[1:]
	}
	return isDigits(tok)
}
