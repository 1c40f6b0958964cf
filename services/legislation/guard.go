package legislation

// Decision is what the duplicate guard decides for a discovered law
// number before its detail page is fetched.
type Decision int

const (
	// Skip: already stored and not rescraping, don't fetch the detail page
	Skip Decision = iota
	// Insert: new law number
	Insert
	// Replace: stored, but a forced rescrape overwrites the record
	Replace
)

func (d Decision) String() string {
	switch d {
	case Skip:
		return "skip"
	case Insert:
		return "insert"
	case Replace:
		return "replace"
	}
	return "unknown"
}

// Decide runs before any detail fetch so skipped items cost zero
// requests.
func Decide(store *Store, lawNumber string, forceRescrape bool) Decision {
	if !store.Has(lawNumber) {
		return Insert
	}
	if forceRescrape {
		return Replace
	}
	return Skip
}
