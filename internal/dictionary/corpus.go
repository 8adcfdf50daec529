// internal/dictionary/corpus.go
//
// Corpus and view types for the idiom dictionary.
//
// A Corpus is the on-disk shape inherited from the original bot's lib.json:
//
//	{ "<leading key>": { "<idiom>": "<trailing key>" } }
//
// A View is an immutable, indexed snapshot of the merged curated and
// contributed corpora. Views are built once per mutation and shared by
// readers without locking.
package dictionary

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Entry is a single idiom together with its match keys.
type Entry struct {
	Idiom    string `json:"idiom"`
	Leading  string `json:"leading"`
	Trailing string `json:"trailing"`
}

// Corpus maps leading key -> idiom -> trailing key.
type Corpus map[string]map[string]string

// Len returns the number of idioms in c.
func (c Corpus) Len() int {
	n := 0
	for _, idioms := range c {
		n += len(idioms)
	}
	return n
}

// Clone returns a deep copy of c.
func (c Corpus) Clone() Corpus {
	out := make(Corpus, len(c))
	for lead, idioms := range c {
		m := make(map[string]string, len(idioms))
		for idiom, trail := range idioms {
			m[idiom] = trail
		}
		out[lead] = m
	}
	return out
}

// put stores e under its leading key.
func (c Corpus) put(e Entry) {
	m, ok := c[e.Leading]
	if !ok {
		m = make(map[string]string)
		c[e.Leading] = m
	}
	m[e.Idiom] = e.Trailing
}

// Merge unions curated and contributed. A contributed idiom whose text is
// already present (in curated, or earlier in contributed) is dropped, so
// merging the same contributed corpus again changes nothing.
func Merge(curated, contributed Corpus) Corpus {
	out := curated.Clone()
	seen := make(map[string]struct{}, out.Len())
	for _, idioms := range out {
		for idiom := range idioms {
			seen[idiom] = struct{}{}
		}
	}
	for _, lead := range sortedKeys(contributed) {
		idioms := contributed[lead]
		for _, idiom := range sortedKeys(idioms) {
			if _, dup := seen[idiom]; dup {
				continue
			}
			seen[idiom] = struct{}{}
			out.put(Entry{Idiom: idiom, Leading: lead, Trailing: idioms[idiom]})
		}
	}
	return out
}

// View is a read-only indexed snapshot of a merged corpus.
type View struct {
	keys      []string           // distinct leading keys, sorted
	byLeading map[string][]Entry // sorted by idiom
	byFirst   map[rune][]Entry   // sorted by idiom
	index     map[string]Entry
}

// NewView indexes c. Entries are sorted so that sampling with a fixed
// random source is reproducible regardless of map iteration order.
func NewView(c Corpus) *View {
	v := &View{
		byLeading: make(map[string][]Entry, len(c)),
		byFirst:   make(map[rune][]Entry),
		index:     make(map[string]Entry, c.Len()),
	}
	for _, lead := range sortedKeys(c) {
		idioms := c[lead]
		for _, idiom := range sortedKeys(idioms) {
			if _, dup := v.index[idiom]; dup {
				continue
			}
			e := Entry{Idiom: idiom, Leading: lead, Trailing: idioms[idiom]}
			v.index[idiom] = e
			v.byLeading[lead] = append(v.byLeading[lead], e)
			if r, ok := FirstRune(idiom); ok {
				v.byFirst[r] = append(v.byFirst[r], e)
			}
		}
		if len(v.byLeading[lead]) > 0 {
			v.keys = append(v.keys, lead)
		}
	}
	for r := range v.byFirst {
		es := v.byFirst[r]
		sort.Slice(es, func(i, j int) bool { return es[i].Idiom < es[j].Idiom })
	}
	return v
}

// Lookup returns the entry recorded for idiom.
func (v *View) Lookup(idiom string) (Entry, bool) {
	e, ok := v.index[idiom]
	return e, ok
}

// Len is the number of distinct idioms in the view.
func (v *View) Len() int { return len(v.index) }

// Keys returns the distinct leading keys in sorted order.
func (v *View) Keys() []string { return v.keys }

// ByLeading returns every entry whose leading key equals key.
func (v *View) ByLeading(key string) []Entry { return v.byLeading[key] }

// ByFirstRune returns every entry whose idiom starts with r.
func (v *View) ByFirstRune(r rune) []Entry { return v.byFirst[r] }

// Random picks a leading key uniformly, then an idiom under it uniformly.
// Idioms under crowded keys are therefore less likely than idioms under
// sparse keys.
func (v *View) Random(rng Rand) (Entry, bool) {
	if len(v.keys) == 0 {
		return Entry{}, false
	}
	es := v.byLeading[v.keys[rng.IntN(len(v.keys))]]
	return es[rng.IntN(len(es))], true
}

// Normalize canonicalises idiom text: surrounding whitespace is removed and
// the result is put in Unicode NFC so composed and decomposed input match.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// FirstRune returns the first character of s.
func FirstRune(s string) (rune, bool) {
	if s == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, r != utf8.RuneError
}

// LastRune returns the last character of s.
func LastRune(s string) (rune, bool) {
	if s == "" {
		return 0, false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return r, r != utf8.RuneError
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
