package diff

import (
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWords_GrammarCorrection(t *testing.T) {
	segs := Words("she dont like it", "She doesn't like it.")

	want := []Segment{
		{Value: "she", Removed: true},
		{Value: "She", Added: true},
		{Value: " "},
		{Value: "dont", Removed: true},
		{Value: "doesn't", Added: true},
		{Value: " like it"},
		{Value: ".", Added: true},
	}
	assert.Equal(t, want, segs)
}

func TestWords_Identical(t *testing.T) {
	segs := Words("nothing to fix here", "nothing to fix here")

	require.Len(t, segs, 1)
	assert.Equal(t, KindUnchanged, segs[0].Kind())
	assert.False(t, Changed(segs))
}

func TestWords_EmptyInputs(t *testing.T) {
	assert.Empty(t, Words("", ""))
	assert.Equal(t, []Segment{{Value: "hello world", Added: true}}, Words("", "hello world"))
	assert.Equal(t, []Segment{{Value: "hello world", Removed: true}}, Words("hello world", ""))
}

func TestWords_RoundTrip(t *testing.T) {
	cases := []struct {
		original  string
		corrected string
	}{
		{"she dont like it", "She doesn't like it."},
		{"their going too the store", "They're going to the store."},
		{"  leading and trailing  ", "leading and trailing"},
		{"line one\nline  two", "Line one.\nLine two."},
		{"café naïve", "café, naïve!"},
		{"caf\xe9 is open", "Café is open."},
		{"bad \xff\xfe bytes", "bad bytes"},
		{"a b c d", "d c b a"},
		{"", "x"},
		{"x", ""},
	}

	for _, tc := range cases {
		segs := Words(tc.original, tc.corrected)
		assert.Equal(t, tc.original, Original(segs), "original of %q", tc.original)
		assert.Equal(t, tc.corrected, Corrected(segs), "corrected of %q", tc.corrected)

		for _, s := range segs {
			assert.False(t, s.Added && s.Removed)
			assert.NotEmpty(t, s.Value)
		}
	}
}

func TestWords_RemovedBeforeAdded(t *testing.T) {
	segs := Words("I has a apple", "I have an apple")

	for i := 1; i < len(segs); i++ {
		if segs[i].Removed {
			assert.False(t, segs[i-1].Added, "removal at %d follows an addition", i)
		}
	}
}

func TestWords_AdjacentSegmentsDiffer(t *testing.T) {
	segs := Words("the the cat sat sat", "the cat sat on the mat")

	for i := 1; i < len(segs); i++ {
		assert.NotEqual(t, segs[i-1].Kind(), segs[i].Kind())
	}
}

func TestWords_LargeInput(t *testing.T) {
	words := make([]string, 4000)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i%700)
	}
	original := strings.Join(words, " ")

	words[1000] = "first"
	words[2000] = "second"
	words[3000] = "third"
	corrected := strings.Join(words, " ")

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	segs := Words(original, corrected)

	runtime.ReadMemStats(&after)

	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(32<<20))
	assert.Equal(t, original, Original(segs))
	assert.Equal(t, corrected, Corrected(segs))
	assert.Equal(t, Stats{Added: 3, Removed: 3, Unchanged: 3997}, Summarize(segs))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"She", " ", "doesn't", " ", "like", "  ", "it", "."},
		tokenize("She doesn't like  it."),
	)
	assert.Equal(t, []string{"'", "quoted", "'"}, tokenize("'quoted'"))
	assert.Equal(t, []string{"rock’n", "’", " "}, tokenize("rock’n’ "))
	assert.Equal(t, []string{"caf", "\xe9", " ", "ok"}, tokenize("caf\xe9 ok"))
}

func TestSummarize(t *testing.T) {
	stats := Summarize(Words("she dont like it", "She doesn't like it."))

	assert.Equal(t, Stats{Added: 2, Removed: 2, Unchanged: 2}, stats)
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindUnchanged, "unchanged"},
		{KindAdded, "added"},
		{KindRemoved, "removed"},
		{Kind(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.kind.String())
	}
}
