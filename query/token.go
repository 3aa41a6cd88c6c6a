package query

import "strings"

// TokenKind classifies the instructions produced by Tokenize.
type TokenKind int

const (
	// TokenGroup is an ordered part: a literal that must match contiguously,
	// with arbitrary gaps allowed between consecutive groups.
	TokenGroup TokenKind = iota
	// TokenForcedFuzzy marks per-character matching; it is followed by
	// one-rune groups.
	TokenForcedFuzzy
	// TokenForcedExact carries the whole remaining query concatenated into
	// one contiguous literal.
	TokenForcedExact
	// TokenAnchorStart carries a contiguous literal that must match at the
	// very start of the stritem.
	TokenAnchorStart
	// TokenAnchorEnd requires the match to end at the end of the stritem.
	TokenAnchorEnd
)

// String returns the token kind name.
func (k TokenKind) String() string {
	switch k {
	case TokenGroup:
		return "group"
	case TokenForcedFuzzy:
		return "forced-fuzzy"
	case TokenForcedExact:
		return "forced-exact"
	case TokenAnchorStart:
		return "anchor-start"
	case TokenAnchorEnd:
		return "anchor-end"
	default:
		return "unknown"
	}
}

// Token is one query instruction. Text carries the literal for TokenGroup,
// TokenForcedExact and TokenAnchorStart; it is empty for markers.
type Token struct {
	Kind TokenKind
	Text string
}

// Plan is the flat, matcher-ready form of a tokenized query: ordered
// contiguous parts plus anchors. An empty Parts slice means the query
// filters nothing (identity).
type Plan struct {
	Parts       []string
	AnchorStart bool
	AnchorEnd   bool
}

// Tokenize classifies query entries into instructions.
//
// Rules:
//   - A leading "*" forces per-character matching of everything after it.
//   - A leading "'" concatenates everything after it (whitespace entries
//     included) into one contiguous literal.
//   - A leading "^" does the same and anchors the literal to the start.
//   - An entry that is exactly "$", wherever it appears, anchors the match
//     end to the stritem end and is removed from the matchable parts.
//   - Otherwise whitespace-only entries act as separators: runs of
//     consecutive non-separator entries concatenate into one group each,
//     leading/trailing separators drop. When no separator is present every
//     entry stands as its own group, so plain typing gets one part per
//     keystroke.
//
// Control entries are only recognized in leading position. Empty-string
// entries are ignored. The input slice is never mutated.
func Tokenize(entries []string) []Token {
	trimmed := make([]string, 0, len(entries))
	for _, e := range entries {
		if e != "" {
			trimmed = append(trimmed, e)
		}
	}
	if len(trimmed) == 0 {
		return nil
	}

	var tokens []Token

	mode := TokenGroup
	switch trimmed[0] {
	case "*":
		mode = TokenForcedFuzzy
		trimmed = trimmed[1:]
	case "'":
		mode = TokenForcedExact
		trimmed = trimmed[1:]
	case "^":
		mode = TokenAnchorStart
		trimmed = trimmed[1:]
	}

	anchorEnd := false
	rest := make([]string, 0, len(trimmed))
	for _, e := range trimmed {
		if e == "$" {
			anchorEnd = true
			continue
		}
		rest = append(rest, e)
	}

	switch mode {
	case TokenForcedFuzzy:
		tokens = append(tokens, Token{Kind: TokenForcedFuzzy})
		for _, e := range rest {
			if isSeparator(e) {
				continue
			}
			for _, r := range e {
				tokens = append(tokens, Token{Kind: TokenGroup, Text: string(r)})
			}
		}
	case TokenForcedExact:
		tokens = append(tokens, Token{Kind: TokenForcedExact, Text: strings.Join(rest, "")})
	case TokenAnchorStart:
		tokens = append(tokens, Token{Kind: TokenAnchorStart, Text: strings.Join(rest, "")})
	default:
		grouped := false
		for _, e := range rest {
			if isSeparator(e) {
				grouped = true
				break
			}
		}
		if grouped {
			var group strings.Builder
			flush := func() {
				if group.Len() > 0 {
					tokens = append(tokens, Token{Kind: TokenGroup, Text: group.String()})
					group.Reset()
				}
			}
			for _, e := range rest {
				if isSeparator(e) {
					flush()
					continue
				}
				group.WriteString(e)
			}
			flush()
		} else {
			for _, e := range rest {
				tokens = append(tokens, Token{Kind: TokenGroup, Text: e})
			}
		}
	}

	if anchorEnd {
		tokens = append(tokens, Token{Kind: TokenAnchorEnd})
	}
	return tokens
}

// Compile tokenizes entries and folds the instruction stream into a Plan.
func Compile(entries []string) Plan {
	var plan Plan
	for _, tok := range Tokenize(entries) {
		switch tok.Kind {
		case TokenGroup:
			plan.Parts = append(plan.Parts, tok.Text)
		case TokenForcedExact:
			if tok.Text != "" {
				plan.Parts = append(plan.Parts, tok.Text)
			}
		case TokenAnchorStart:
			plan.AnchorStart = true
			if tok.Text != "" {
				plan.Parts = append(plan.Parts, tok.Text)
			}
		case TokenAnchorEnd:
			plan.AnchorEnd = true
		case TokenForcedFuzzy:
			// Groups following the marker are already single runes.
		}
	}
	return plan
}

func isSeparator(e string) bool {
	return strings.TrimSpace(e) == ""
}
