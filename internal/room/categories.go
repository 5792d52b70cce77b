package room

import (
	"fmt"
	"math/rand"
	"strings"
)

// Letters is the alphabet a round letter is drawn from when the host left
// the override blank. Rare starting letters are excluded.
const Letters = "ABCDEFGHIJKLMNOPRSTW"

// DefaultPool is the built-in category list games sample from.
var DefaultPool = []string{
	"Animal",
	"Color",
	"City",
	"Country",
	"Food",
	"Drink",
	"Movie",
	"TV Show",
	"Song",
	"Band or Musician",
	"Book",
	"Famous Person",
	"Fictional Character",
	"Sport",
	"Hobby",
	"Occupation",
	"Body of Water",
	"Mountain or Landmark",
	"Something in a Kitchen",
	"Something in a Classroom",
	"Something You Wear",
	"Something Cold",
	"Something Hot",
	"Something Round",
	"Something Sticky",
	"Reason to Be Late",
	"Excuse to Leave a Party",
	"Thing at the Beach",
	"Thing in a Park",
	"Thing That Flies",
	"Board Game",
	"Video Game",
	"Flower or Plant",
	"Tree",
	"Insect",
	"Breakfast Food",
	"Pizza Topping",
	"Ice Cream Flavor",
	"School Subject",
	"Language",
}

// SampleCategories draws n categories uniformly without replacement.
// Asking for more categories than the pool holds is a configuration error
// and fails rather than returning a short or repeating list.
func SampleCategories(pool []string, n int, rnd *rand.Rand) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("need at least one category, got %d", n)
	}
	if n > len(pool) {
		return nil, fmt.Errorf("cannot sample %d categories from a pool of %d", n, len(pool))
	}
	perm := rnd.Perm(len(pool))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = pool[perm[i]]
	}
	return out, nil
}

// ResolveLetter picks the round letter: the first rune of a non-empty
// override, uppercased, else a uniform draw from Letters.
func ResolveLetter(override string, rnd *rand.Rand) string {
	for _, r := range strings.TrimSpace(override) {
		return strings.ToUpper(string(r))
	}
	return string(Letters[rnd.Intn(len(Letters))])
}
