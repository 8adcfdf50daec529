// internal/game/engine.go
//
// Continuation engine: chooses the system's next idiom.
//
// Candidate tiers, in strict priority order:
//  1. character chain: the idiom's first character equals the previous
//     idiom's last character;
//  2. sound chain: the idiom's leading key equals the previous trailing
//     key, excluding idioms already in tier 1.
//
// A non-empty tier 1 always wins; tier 2 is only a fallback. Candidates come
// out of the view sorted, so a fixed random source gives a fixed reply.

package game

import (
	"github.com/robalobadob/idiomchain/internal/dictionary"
)

// Chains reports whether next may follow prevIdiom. Any idiom may open a
// chain, so an empty prevIdiom always chains.
func Chains(prevIdiom, prevTrailing string, next dictionary.Entry) bool {
	if prevIdiom == "" {
		return true
	}
	return charChains(prevIdiom, next.Idiom) || (prevTrailing != "" && next.Leading == prevTrailing)
}

func charChains(prevIdiom, nextIdiom string) bool {
	last, ok := dictionary.LastRune(prevIdiom)
	if !ok {
		return false
	}
	first, ok := dictionary.FirstRune(nextIdiom)
	return ok && first == last
}

// Candidates returns the character-chain and sound-chain tiers for a reply
// to prevIdiom.
func Candidates(prevIdiom, prevTrailing string, v *dictionary.View) (byChar, bySound []dictionary.Entry) {
	if last, ok := dictionary.LastRune(prevIdiom); ok {
		byChar = v.ByFirstRune(last)
	}
	if prevTrailing == "" {
		return byChar, nil
	}
	for _, e := range v.ByLeading(prevTrailing) {
		if charChains(prevIdiom, e.Idiom) {
			continue
		}
		bySound = append(bySound, e)
	}
	return byChar, bySound
}

// Next picks the system's reply to prevIdiom, or ErrNoContinuation.
func Next(prevIdiom, prevTrailing string, v *dictionary.View, rng dictionary.Rand) (dictionary.Entry, error) {
	byChar, bySound := Candidates(prevIdiom, prevTrailing, v)
	switch {
	case len(byChar) > 0:
		return byChar[rng.IntN(len(byChar))], nil
	case len(bySound) > 0:
		return bySound[rng.IntN(len(bySound))], nil
	default:
		return dictionary.Entry{}, ErrNoContinuation
	}
}
