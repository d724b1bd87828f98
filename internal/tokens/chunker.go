package tokens

import (
	"context"
	"iter"
	"slices"
	"strings"
)

// Chunks splits text on single spaces and greedily packs words into chunks
// whose estimate stays within maxTokens. A word that alone exceeds the budget
// becomes its own chunk. Joining the chunks with single spaces yields text.
//
// The running estimate is the sum of per-word estimates, which bounds the
// exact estimate from above for subadditive counters; the exact count of the
// candidate chunk is only taken when that bound crosses the budget.
func Chunks(ctx context.Context, c Counter, text string, maxTokens int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}

		var (
			chunk  strings.Builder
			words  int
			approx int
		)
		for _, word := range strings.Split(text, " ") {
			if words == 0 {
				chunk.WriteString(word)
				words = 1
				approx = c.Estimate(ctx, word)
				continue
			}

			next := approx + c.Estimate(ctx, " "+word)
			if next > maxTokens {
				exact := c.Estimate(ctx, chunk.String()+" "+word)
				if exact > maxTokens {
					if !yield(chunk.String()) {
						return
					}
					chunk.Reset()
					chunk.WriteString(word)
					words = 1
					approx = c.Estimate(ctx, word)
					continue
				}
				next = exact
			}

			chunk.WriteString(" ")
			chunk.WriteString(word)
			words++
			approx = next
		}

		if words > 0 {
			yield(chunk.String())
		}
	}
}

// Chunk collects Chunks into a slice.
func Chunk(ctx context.Context, c Counter, text string, maxTokens int) []string {
	return slices.Collect(Chunks(ctx, c, text, maxTokens))
}
