package tokens

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = strings.Repeat("w", i%7+1)
	}
	return strings.Join(parts, " ")
}

func TestChunkRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := HeuristicCounter{}

	texts := []string{
		words(500),
		"  leading and  double spaces ",
		"Page 1\nline one\n\nPage 2 line two",
		"single",
		" ",
	}
	for _, text := range texts {
		for _, budget := range []int{1, 3, 10, 50} {
			chunks := Chunk(ctx, c, text, budget)
			assert.Equal(t, text, strings.Join(chunks, " "), "budget %d", budget)
			for _, ch := range chunks {
				if !strings.Contains(ch, " ") {
					continue // single word, may overflow
				}
				assert.LessOrEqual(t, c.Estimate(ctx, ch), budget)
			}
		}
	}
}

func TestChunkEmpty(t *testing.T) {
	assert.Empty(t, Chunk(context.Background(), HeuristicCounter{}, "", 10))
}

func TestChunkOversizedWord(t *testing.T) {
	long := strings.Repeat("x", 40)
	chunks := Chunk(context.Background(), HeuristicCounter{}, "ab "+long+" cd", 2)
	assert.Equal(t, []string{"ab", long, "cd"}, chunks)
}

func TestChunkFitsInOne(t *testing.T) {
	chunks := Chunk(context.Background(), HeuristicCounter{}, "one two three", 100)
	assert.Equal(t, []string{"one two three"}, chunks)
}

func TestChunksRestartable(t *testing.T) {
	seq := Chunks(context.Background(), HeuristicCounter{}, words(200), 20)

	var first []string
	for ch := range seq {
		first = append(first, ch)
	}
	var second []string
	for ch := range seq {
		second = append(second, ch)
	}
	assert.Equal(t, first, second)
	assert.Greater(t, len(first), 1)

	var taken []string
	for ch := range seq {
		taken = append(taken, ch)
		if len(taken) == 2 {
			break
		}
	}
	assert.Equal(t, first[:2], taken)
}

func TestChunkWithLocalCodec(t *testing.T) {
	ctx := context.Background()
	e := NewEstimator()
	text := words(300)
	chunks := Chunk(ctx, e, text, 25)
	assert.Equal(t, text, strings.Join(chunks, " "))
	for _, ch := range chunks {
		assert.LessOrEqual(t, e.Estimate(ctx, ch), 25)
	}
}
