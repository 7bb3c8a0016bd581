package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_Prompt(t *testing.T) {
	var out bytes.Buffer
	console := NewConsole(strings.NewReader("  4/abc-code \n5\n"), &out)

	answer, err := console.Prompt("Enter the authorization code:")
	require.NoError(t, err)
	assert.Equal(t, "4/abc-code", answer)

	answer, err = console.Prompt("Pick a day")
	require.NoError(t, err)
	assert.Equal(t, "5", answer)

	assert.Equal(t, "Enter the authorization code:\nPick a day\n", out.String())
}

func TestConsole_LastLineWithoutNewline(t *testing.T) {
	console := NewConsole(strings.NewReader("3"), &bytes.Buffer{})

	answer, err := console.Prompt("")
	require.NoError(t, err)
	assert.Equal(t, "3", answer)

	_, err = console.Prompt("")
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestScripted(t *testing.T) {
	s := NewScripted("first", "second")

	a, err := s.Prompt("q1")
	require.NoError(t, err)
	assert.Equal(t, "first", a)

	a, err = s.Prompt("q2")
	require.NoError(t, err)
	assert.Equal(t, "second", a)

	_, err = s.Prompt("q3")
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Equal(t, []string{"q1", "q2", "q3"}, s.Asked)
}
