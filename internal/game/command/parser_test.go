package command

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParse_Empty(t *testing.T) {
	result := Parse("   ")
	assert.Equal(t, "", result.Command)
	assert.Nil(t, result.Args)
}

func TestParse_SingleWord(t *testing.T) {
	result := Parse("refresh")
	assert.Equal(t, "refresh", result.Command)
	assert.Nil(t, result.Args)
	assert.Equal(t, "", result.RawArgs)
}

func TestParse_Lowercase(t *testing.T) {
	result := Parse("HOST")
	assert.Equal(t, "host", result.Command)
}

func TestParse_SessionNameKeepsSpacing(t *testing.T) {
	result := Parse("  host   Friday   Night  ")
	assert.Equal(t, "host", result.Command)
	assert.Equal(t, []string{"Friday", "Night"}, result.Args)
	assert.Equal(t, "Friday   Night", result.RawArgs)
}

func TestParseResult_IntArg(t *testing.T) {
	n, err := Parse("join 3").IntArg(0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = Parse("join -1").IntArg(0)
	require.NoError(t, err)
	assert.Equal(t, -1, n)

	_, err = Parse("join").IntArg(0)
	assert.ErrorContains(t, err, "missing argument 1")

	_, err = Parse("join first").IntArg(0)
	assert.ErrorContains(t, err, `"first" is not a number`)
}

func TestPropertyParseAlwaysLowercasesCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[A-Za-z]{1,20}`).Draw(t, "word")
		result := Parse(word)
		for _, c := range result.Command {
			if c >= 'A' && c <= 'Z' {
				t.Fatalf("command %q contains uppercase char in Parse result %q", word, result.Command)
			}
		}
	})
}

func TestPropertyIntArgRoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(-1000, 1000).Draw(t, "n")
		got, err := Parse("join " + strconv.Itoa(n)).IntArg(0)
		if err != nil {
			t.Fatalf("IntArg(%d): %v", n, err)
		}
		if got != n {
			t.Fatalf("IntArg = %d, want %d", got, n)
		}
	})
}
