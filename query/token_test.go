package query

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		want    []Token
	}{
		{
			name:    "empty",
			entries: nil,
			want:    nil,
		},
		{
			name:    "typed characters stay separate parts",
			entries: []string{"a", "b"},
			want: []Token{
				{Kind: TokenGroup, Text: "a"},
				{Kind: TokenGroup, Text: "b"},
			},
		},
		{
			name:    "pasted chunk is one part",
			entries: []string{"ab", "c"},
			want: []Token{
				{Kind: TokenGroup, Text: "ab"},
				{Kind: TokenGroup, Text: "c"},
			},
		},
		{
			name:    "separator groups surrounding entries",
			entries: []string{"a", "b", " ", "c"},
			want: []Token{
				{Kind: TokenGroup, Text: "ab"},
				{Kind: TokenGroup, Text: "c"},
			},
		},
		{
			name:    "separator runs collapse and edges drop",
			entries: []string{" ", "a", " ", "\t", "b", " "},
			want: []Token{
				{Kind: TokenGroup, Text: "a"},
				{Kind: TokenGroup, Text: "b"},
			},
		},
		{
			name:    "forced fuzzy splits to runes",
			entries: []string{"*", "ab", "c"},
			want: []Token{
				{Kind: TokenForcedFuzzy},
				{Kind: TokenGroup, Text: "a"},
				{Kind: TokenGroup, Text: "b"},
				{Kind: TokenGroup, Text: "c"},
			},
		},
		{
			name:    "forced fuzzy drops separators",
			entries: []string{"*", "a", " ", "b"},
			want: []Token{
				{Kind: TokenForcedFuzzy},
				{Kind: TokenGroup, Text: "a"},
				{Kind: TokenGroup, Text: "b"},
			},
		},
		{
			name:    "forced exact concatenates everything",
			entries: []string{"'", "a", " ", "b"},
			want: []Token{
				{Kind: TokenForcedExact, Text: "a b"},
			},
		},
		{
			name:    "anchored start",
			entries: []string{"^", "a", "b"},
			want: []Token{
				{Kind: TokenAnchorStart, Text: "ab"},
			},
		},
		{
			name:    "anchored end",
			entries: []string{"a", "b", "$"},
			want: []Token{
				{Kind: TokenGroup, Text: "a"},
				{Kind: TokenGroup, Text: "b"},
				{Kind: TokenAnchorEnd},
			},
		},
		{
			name:    "dollar anywhere anchors",
			entries: []string{"a", "$", "b"},
			want: []Token{
				{Kind: TokenGroup, Text: "a"},
				{Kind: TokenGroup, Text: "b"},
				{Kind: TokenAnchorEnd},
			},
		},
		{
			name:    "both anchors",
			entries: []string{"^", "a", "b", "$"},
			want: []Token{
				{Kind: TokenAnchorStart, Text: "ab"},
				{Kind: TokenAnchorEnd},
			},
		},
		{
			name:    "control entries are literal when not leading",
			entries: []string{"a", "'", "^"},
			want: []Token{
				{Kind: TokenGroup, Text: "a"},
				{Kind: TokenGroup, Text: "'"},
				{Kind: TokenGroup, Text: "^"},
			},
		},
		{
			name:    "lone quote is a bare mode marker",
			entries: []string{"'"},
			want: []Token{
				{Kind: TokenForcedExact, Text: ""},
			},
		},
		{
			name:    "lone dollar",
			entries: []string{"$"},
			want: []Token{
				{Kind: TokenAnchorEnd},
			},
		},
		{
			name:    "whitespace only",
			entries: []string{" ", "\t"},
			want:    nil,
		},
		{
			name:    "multibyte forced fuzzy",
			entries: []string{"*", "日本"},
			want: []Token{
				{Kind: TokenForcedFuzzy},
				{Kind: TokenGroup, Text: "日"},
				{Kind: TokenGroup, Text: "本"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.entries)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%v) = %v, want %v", tt.entries, got, tt.want)
			}
		})
	}
}

func TestTokenizeDoesNotMutateInput(t *testing.T) {
	entries := []string{"'", "a", "$"}
	Tokenize(entries)
	if !reflect.DeepEqual(entries, []string{"'", "a", "$"}) {
		t.Fatalf("input mutated: %v", entries)
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		want    Plan
	}{
		{
			name:    "empty",
			entries: nil,
			want:    Plan{},
		},
		{
			name:    "plain parts",
			entries: []string{"a", "b"},
			want:    Plan{Parts: []string{"a", "b"}},
		},
		{
			name:    "exact",
			entries: []string{"'", "a", "b"},
			want:    Plan{Parts: []string{"ab"}},
		},
		{
			name:    "anchored both ends",
			entries: []string{"^", "ab", "$"},
			want:    Plan{Parts: []string{"ab"}, AnchorStart: true, AnchorEnd: true},
		},
		{
			name:    "bare markers carry no parts",
			entries: []string{"'"},
			want:    Plan{},
		},
		{
			name:    "bare anchor start",
			entries: []string{"^"},
			want:    Plan{AnchorStart: true},
		},
		{
			name:    "fuzzy runes",
			entries: []string{"*", "ab"},
			want:    Plan{Parts: []string{"a", "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compile(tt.entries)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Compile(%v) = %+v, want %+v", tt.entries, got, tt.want)
			}
		})
	}
}
