package prompt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scripted(t *testing.T, lines ...string) (*Terminal, *bytes.Buffer, *[]string) {
	t.Helper()
	var out bytes.Buffer
	var prompts []string
	term := NewTerminal(&out)
	term.readLine = func(p string) (string, error) {
		prompts = append(prompts, p)
		if len(lines) == 0 {
			return "", ErrAborted
		}
		line := lines[0]
		lines = lines[1:]
		return line, nil
	}
	return term, &out, &prompts
}

func TestText(t *testing.T) {
	t.Parallel()
	term, out, prompts := scripted(t, "  gsk_new  ")
	got, err := term.Text("Groq API key", "", "Create one at https://console.groq.com/keys")
	require.NoError(t, err)
	assert.Equal(t, "gsk_new", got)
	assert.Equal(t, []string{"Groq API key: "}, *prompts)
	assert.Contains(t, out.String(), "console.groq.com")
}

func TestText_emptyKeepsDefault(t *testing.T) {
	t.Parallel()
	term, _, prompts := scripted(t, "")
	got, err := term.Text("Groq API key", "gsk_secretvalue", "")
	require.NoError(t, err)
	assert.Equal(t, "gsk_secretvalue", got)
	require.Len(t, *prompts, 1)
	assert.Equal(t, "Groq API key [****alue]: ", (*prompts)[0])
	assert.NotContains(t, (*prompts)[0], "secret")
}

func TestText_aborted(t *testing.T) {
	t.Parallel()
	term, _, _ := scripted(t)
	_, err := term.Text("x", "", "")
	assert.ErrorIs(t, err, ErrAborted)
}

func TestSelect_byNumberAfterFilter(t *testing.T) {
	t.Parallel()
	opts := []string{"gemma2-9b-it", "llama-3.1-8b-instant", "llama-3.3-70b-versatile"}
	term, out, prompts := scripted(t, "2")
	got, err := term.Select("Model", opts, "llama")
	require.NoError(t, err)
	assert.Equal(t, "llama-3.3-70b-versatile", got)
	assert.NotContains(t, out.String(), "gemma")
	assert.True(t, strings.HasSuffix((*prompts)[0], "[llama]: "))
}

func TestSelect_refineThenAcceptSingle(t *testing.T) {
	t.Parallel()
	opts := []string{"gemma2-9b-it", "llama-3.1-8b-instant", "qwen-2.5-coder-32b"}
	term, _, prompts := scripted(t, "qwen", "")
	got, err := term.Select("Model", opts, "")
	require.NoError(t, err)
	assert.Equal(t, "qwen-2.5-coder-32b", got)
	assert.Len(t, *prompts, 2)
}

func TestSelect_noMatchResetsFilter(t *testing.T) {
	t.Parallel()
	opts := []string{"a-model", "b-model"}
	term, out, _ := scripted(t, "b-model")
	got, err := term.Select("Model", opts, "zzz")
	require.NoError(t, err)
	assert.Equal(t, "b-model", got)
	assert.Contains(t, out.String(), `No option matches "zzz"`)
}

func TestSelect_emptyOptions(t *testing.T) {
	t.Parallel()
	term, _, _ := scripted(t)
	_, err := term.Select("Model", nil, "")
	assert.Error(t, err)
}

func TestSelect_abortPropagates(t *testing.T) {
	t.Parallel()
	term, _, _ := scripted(t, "9", "nomatch-but-filter")
	_, err := term.Select("Model", []string{"a", "b"}, "")
	assert.True(t, errors.Is(err, ErrAborted))
}

func TestFilter(t *testing.T) {
	t.Parallel()
	opts := []string{"Llama-3", "qwen", "llama-guard"}
	assert.Equal(t, opts, Filter(opts, ""))
	assert.Equal(t, []string{"Llama-3", "llama-guard"}, Filter(opts, " LLAMA "))
	assert.Empty(t, Filter(opts, "mistral"))
}

func TestChoose(t *testing.T) {
	t.Parallel()
	opts := []string{"a", "b", "c"}
	tests := []struct {
		name       string
		matches    []string
		input      string
		wantChoice string
		wantFilter string
		wantOK     bool
	}{
		{"number", opts, "3", "c", "", true},
		{"number_out_of_range", opts, "4", "", "", false},
		{"zero", opts, "0", "", "", false},
		{"exact_name_outside_matches", []string{"a"}, "c", "c", "", true},
		{"enter_single_match", []string{"b"}, "", "b", "", true},
		{"enter_many_matches", opts, "", "", "", false},
		{"new_filter", opts, "x", "", "x", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			choice, next, ok := Choose(opts, tt.matches, tt.input)
			assert.Equal(t, tt.wantChoice, choice)
			assert.Equal(t, tt.wantFilter, next)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestMask(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "***", Mask("abc"))
	assert.Equal(t, "****5678", Mask("gsk_12345678"))
}

func TestClose_withoutUse(t *testing.T) {
	t.Parallel()
	assert.NoError(t, NewTerminal(nil).Close())
}
