package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeBasicCall(t *testing.T) {
	toks, errs := Tokenize(`db.orders.find({status:"NEW"},{_id:1}).limit(5)`)
	require.Empty(t, errs)
	require.Equal(t, EOF, toks[len(toks)-1].Kind)

	var kinds []Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Contains(t, kinds, Identifier)
	require.Contains(t, kinds, LeftBrace)
	require.Contains(t, kinds, String)
	require.Contains(t, kinds, Number)
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, errs := Tokenize(`"a\nb"`)
	require.Empty(t, errs)
	require.Equal(t, "a\nb", toks[0].Literal)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, errs := Tokenize(`db.a.find("abc)`)
	require.NotEmpty(t, errs)
	require.Equal(t, "Unterminated string", errs[0].Message)
}

func TestTokenizeRegexWithFlags(t *testing.T) {
	toks, errs := Tokenize(`/^foo$/im`)
	require.Empty(t, errs)
	require.Equal(t, Regex, toks[0].Kind)
	require.Equal(t, "^foo$", toks[0].Literal)
	require.Equal(t, RegexFlags, toks[1].Kind)
	require.Equal(t, "im", toks[1].Literal)
}

func TestTokenizeNumberWidening(t *testing.T) {
	toks, _ := Tokenize(`1 2147483648 3.14 -7`)
	require.IsType(t, int32(0), toks[0].Literal)
	require.IsType(t, int64(0), toks[1].Literal)
	require.IsType(t, float64(0), toks[2].Literal)
	require.Equal(t, int32(-7), toks[3].Literal)
}

func TestTokenizeReservedIdentifiers(t *testing.T) {
	toks, _ := Tokenize(`true false null`)
	require.Equal(t, Bool, toks[0].Kind)
	require.Equal(t, true, toks[0].Literal)
	require.Equal(t, Bool, toks[1].Kind)
	require.Equal(t, false, toks[1].Literal)
	require.Equal(t, Null, toks[2].Kind)
}

func TestTokenizeUnknownCharacterRecovers(t *testing.T) {
	toks, errs := Tokenize(`db.a.find(@)`)
	require.NotEmpty(t, errs)
	require.Equal(t, EOF, toks[len(toks)-1].Kind)
}
