package matcher

// Lexical normalization. Comments (and optionally string literals) are
// blanked out byte-for-byte with spaces so that every offset and line number
// in the normalized text maps 1:1 onto the original content. Newlines are
// always preserved.

// NormalizeOptions controls which lexical classes are blanked.
type NormalizeOptions struct {
	StripComments bool
	StripStrings  bool
}

// commentSyntax describes a language's comment and string delimiters.
type commentSyntax struct {
	lineComments []string
	blockOpen    string
	blockClose   string
	stringQuotes []byte
	rawQuote     byte // backtick-style raw literal, 0 when absent
}

// syntaxByLanguage maps evaluation-context language tags to their lexical
// syntax. Unknown languages pass through unmodified, which is the right
// behavior for config formats where "comments" carry meaning (e.g. router
// configs reviewed as plain text).
var syntaxByLanguage = map[string]commentSyntax{
	"go": {
		lineComments: []string{"//"},
		blockOpen:    "/*", blockClose: "*/",
		stringQuotes: []byte{'"', '\''},
		rawQuote:     '`',
	},
	"c": {
		lineComments: []string{"//"},
		blockOpen:    "/*", blockClose: "*/",
		stringQuotes: []byte{'"', '\''},
	},
	"java": {
		lineComments: []string{"//"},
		blockOpen:    "/*", blockClose: "*/",
		stringQuotes: []byte{'"', '\''},
	},
	"javascript": {
		lineComments: []string{"//"},
		blockOpen:    "/*", blockClose: "*/",
		stringQuotes: []byte{'"', '\'', '`'},
	},
	"python": {
		lineComments: []string{"#"},
		stringQuotes: []byte{'"', '\''},
	},
	"ruby": {
		lineComments: []string{"#"},
		stringQuotes: []byte{'"', '\''},
	},
	"shell": {
		lineComments: []string{"#"},
		stringQuotes: []byte{'"', '\''},
	},
	"yaml": {
		lineComments: []string{"#"},
	},
	"terraform": {
		lineComments: []string{"#", "//"},
		blockOpen:    "/*", blockClose: "*/",
		stringQuotes: []byte{'"'},
	},
}

// Normalize returns the content with the selected lexical classes blanked
// out. The result always has the same length and line structure as the
// input. When the language is unknown or no stripping is requested, the
// original slice is returned unchanged.
func Normalize(content []byte, language string, opts NormalizeOptions) []byte {
	syn, known := syntaxByLanguage[language]
	if !known || (!opts.StripComments && !opts.StripStrings) {
		return content
	}

	out := make([]byte, len(content))
	copy(out, content)

	const (
		stateCode = iota
		stateLineComment
		stateBlockComment
		stateString
		stateRawString
	)

	state := stateCode
	var quote byte
	i := 0
	for i < len(out) {
		c := out[i]
		switch state {
		case stateCode:
			if syn.blockOpen != "" && hasPrefixAt(content, i, syn.blockOpen) {
				state = stateBlockComment
				blankRange(out, i, i+len(syn.blockOpen), opts.StripComments)
				i += len(syn.blockOpen)
				continue
			}
			if lc := lineCommentAt(content, i, syn.lineComments); lc > 0 {
				state = stateLineComment
				blankRange(out, i, i+lc, opts.StripComments)
				i += lc
				continue
			}
			if syn.rawQuote != 0 && c == syn.rawQuote {
				state = stateRawString
				i++
				continue
			}
			if isQuote(syn.stringQuotes, c) {
				state = stateString
				quote = c
				i++
				continue
			}
			i++
		case stateLineComment:
			if c == '\n' {
				state = stateCode
			} else if opts.StripComments {
				out[i] = ' '
			}
			i++
		case stateBlockComment:
			if hasPrefixAt(content, i, syn.blockClose) {
				blankRange(out, i, i+len(syn.blockClose), opts.StripComments)
				i += len(syn.blockClose)
				state = stateCode
				continue
			}
			if c != '\n' && opts.StripComments {
				out[i] = ' '
			}
			i++
		case stateString:
			if c == '\\' && i+1 < len(out) {
				if opts.StripStrings {
					out[i] = ' '
					if out[i+1] != '\n' {
						out[i+1] = ' '
					}
				}
				i += 2
				continue
			}
			if c == quote || c == '\n' {
				// An unterminated literal ends at the line break.
				state = stateCode
				i++
				continue
			}
			if opts.StripStrings {
				out[i] = ' '
			}
			i++
		case stateRawString:
			if c == syn.rawQuote {
				state = stateCode
			} else if c != '\n' && opts.StripStrings {
				out[i] = ' '
			}
			i++
		}
	}
	return out
}

func hasPrefixAt(b []byte, i int, prefix string) bool {
	if i+len(prefix) > len(b) {
		return false
	}
	return string(b[i:i+len(prefix)]) == prefix
}

func lineCommentAt(b []byte, i int, markers []string) int {
	for _, m := range markers {
		if hasPrefixAt(b, i, m) {
			return len(m)
		}
	}
	return 0
}

func isQuote(quotes []byte, c byte) bool {
	for _, q := range quotes {
		if c == q {
			return true
		}
	}
	return false
}

func blankRange(b []byte, from, to int, strip bool) {
	if !strip {
		return
	}
	for i := from; i < to && i < len(b); i++ {
		if b[i] != '\n' {
			b[i] = ' '
		}
	}
}

// lineIndex precomputes the byte offsets at which each line starts, enabling
// O(log n) offset-to-line translation during a scan.
type lineIndex struct {
	starts []int
}

func newLineIndex(text []byte) *lineIndex {
	starts := []int{0}
	for i, c := range text {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{starts: starts}
}

// lineOf returns the 1-based line number containing the byte offset.
func (li *lineIndex) lineOf(offset int) int {
	lo, hi := 0, len(li.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}

// lineCount returns the number of lines in the indexed text.
func (li *lineIndex) lineCount() int {
	return len(li.starts)
}

// startOfLine returns the byte offset where the 1-based line begins.
func (li *lineIndex) startOfLine(line int) int {
	if line < 1 {
		line = 1
	}
	if line > len(li.starts) {
		line = len(li.starts)
	}
	return li.starts[line-1]
}

// endOfLine returns the byte offset one past the end of the 1-based line,
// excluding its trailing newline.
func (li *lineIndex) endOfLine(text []byte, line int) int {
	if line >= len(li.starts) {
		return len(text)
	}
	end := li.starts[line] - 1 // position of the newline
	if end < 0 {
		end = 0
	}
	return end
}
