package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexBasic(t *testing.T) {
	toks, err := Lex("1 + 2 * abs(-3)")
	require.NoError(t, err)
	var kinds []Kind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	assert.Equal(t, EOF, kinds[len(kinds)-1])
}

func TestLexTimeLiteral(t *testing.T) {
	toks, err := Lex("10:30")
	require.NoError(t, err)
	require.Equal(t, Time, toks[0].Kind)
	assert.Equal(t, "10:30", toks[0].Text)
}

func TestLexAmPm(t *testing.T) {
	toks, err := Lex("9:30am")
	require.NoError(t, err)
	require.Equal(t, Time, toks[0].Kind)
}

func TestLexString(t *testing.T) {
	toks, err := Lex(`"hi\n"`)
	require.NoError(t, err)
	require.Equal(t, String, toks[0].Kind)
	assert.Equal(t, "hi\n", toks[0].Text)
}

func TestLexNullByteEscapeRejected(t *testing.T) {
	_, err := Lex(`"\x00"`)
	require.Error(t, err)
}

func TestLexQuotedDate(t *testing.T) {
	toks, err := Lex("'2025-01-15'")
	require.NoError(t, err)
	require.Equal(t, DateLit, toks[0].Kind)
}

func TestLexUnterminatedString(t *testing.T) {
	_, err := Lex(`"abc`)
	require.Error(t, err)
}
