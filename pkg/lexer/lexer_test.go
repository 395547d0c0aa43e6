package lexer

import "testing"

func allTokens(source string) []Token {
	l := New(source)
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == TokenEOF || tok.Type == TokenIllegal {
			break
		}
	}
	return toks
}

func TestNextSkipsWhitespaceAndLineComments(t *testing.T) {
	toks := allTokens("  \t 1 // a comment\n  2")
	if len(toks) != 3 {
		t.Fatalf("expected 2 numbers + EOF, got %d tokens: %v", len(toks), toks)
	}
	if toks[0].Literal != "1" || toks[1].Literal != "2" {
		t.Errorf("literals = %q, %q, want 1, 2", toks[0].Literal, toks[1].Literal)
	}
}

func TestNextTracksLineNumbers(t *testing.T) {
	toks := allTokens("1\n2\n3")
	want := []int{1, 2, 3}
	for i, w := range want {
		if toks[i].Line != w {
			t.Errorf("token %d line = %d, want %d", i, toks[i].Line, w)
		}
	}
}

func TestNumberLiteralWithFraction(t *testing.T) {
	toks := allTokens("3.14")
	if toks[0].Type != TokenNumber || toks[0].Literal != "3.14" {
		t.Errorf("token = %+v, want NUMBER 3.14", toks[0])
	}
}

func TestNumberLiteralTrailingDotIsNotConsumed(t *testing.T) {
	toks := allTokens("3.")
	if toks[0].Type != TokenNumber || toks[0].Literal != "3" {
		t.Errorf("token = %+v, want NUMBER 3 (the dot belongs to the next token)", toks[0])
	}
	if toks[1].Type != TokenDot {
		t.Errorf("second token = %+v, want DOT", toks[1])
	}
}

func TestStringLiteralStripsQuotes(t *testing.T) {
	toks := allTokens(`"hello"`)
	if toks[0].Type != TokenString || toks[0].Literal != "hello" {
		t.Errorf("token = %+v, want STRING hello", toks[0])
	}
}

func TestUnterminatedStringIsIllegal(t *testing.T) {
	toks := allTokens(`"hello`)
	if toks[0].Type != TokenIllegal {
		t.Errorf("expected ILLEGAL for an unterminated string, got %+v", toks[0])
	}
}

func TestKeywordsAreRecognized(t *testing.T) {
	cases := map[string]TokenType{
		"and": TokenAnd, "class": TokenClass, "else": TokenElse, "false": TokenFalse,
		"fun": TokenFun, "for": TokenFor, "if": TokenIf, "import": TokenImport,
		"include": TokenInclude, "nil": TokenNil, "or": TokenOr, "print": TokenPrint,
		"return": TokenReturn, "super": TokenSuper, "this": TokenThis, "true": TokenTrue,
		"var": TokenVar, "while": TokenWhile,
	}
	for text, want := range cases {
		toks := allTokens(text)
		if toks[0].Type != want {
			t.Errorf("keyword %q lexed as %v, want %v", text, toks[0].Type, want)
		}
	}
}

func TestIdentifierIsNotConfusedWithKeywordPrefix(t *testing.T) {
	toks := allTokens("classroom")
	if toks[0].Type != TokenIdentifier || toks[0].Literal != "classroom" {
		t.Errorf("token = %+v, want IDENTIFIER classroom", toks[0])
	}
}

func TestTwoCharOperatorsPreferLongestMatch(t *testing.T) {
	cases := map[string]TokenType{
		"==": TokenEqualEqual, "!=": TokenBangEqual, "<=": TokenLessEqual, ">=": TokenGreaterEqual,
		"=": TokenEqual, "!": TokenBang, "<": TokenLess, ">": TokenGreater,
	}
	for text, want := range cases {
		toks := allTokens(text)
		if toks[0].Type != want || toks[0].Literal != text {
			t.Errorf("operator %q lexed as %+v, want %v", text, toks[0], want)
		}
	}
}

func TestUnknownCharacterIsIllegal(t *testing.T) {
	toks := allTokens("@")
	if toks[0].Type != TokenIllegal {
		t.Errorf("expected ILLEGAL for '@', got %+v", toks[0])
	}
}

func TestTokenTypeStringCoversNamedCategories(t *testing.T) {
	cases := map[TokenType]string{
		TokenEOF: "EOF", TokenIllegal: "ILLEGAL", TokenNumber: "NUMBER",
		TokenString: "STRING", TokenIdentifier: "IDENTIFIER",
	}
	for tt, want := range cases {
		if tt.String() != want {
			t.Errorf("%v.String() = %q, want %q", tt, tt.String(), want)
		}
	}
	if TokenPlus.String() != "TOKEN" {
		t.Errorf("punctuation tokens fall back to the generic TOKEN label, got %q", TokenPlus.String())
	}
}
