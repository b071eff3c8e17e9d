package deck

import (
	"math/rand/v2"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Permute shuffles cards in place with Fisher-Yates: for i from the last
// index down to 1, swap i with a uniform pick from [0, i].
func Permute(rng *rand.Rand, cards []domain.Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
