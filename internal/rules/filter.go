package rules

// Filter is an OR-combined list of pattern specs on one dimension.
// An empty filter means the rule did not restrict on that axis.
type Filter []PatternSpec

// Matches reports whether v satisfies the filter. An empty filter
// matches everything.
func (f Filter) Matches(v string) bool {
	if len(f) == 0 {
		return true
	}
	for _, p := range f {
		if p.Matches(v) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether the filter is satisfied by at least one of
// the candidate values. A non-empty filter is never satisfied by an empty
// candidate list.
func (f Filter) MatchesAny(vs []string) bool {
	if len(f) == 0 {
		return true
	}
	for _, v := range vs {
		if f.Matches(v) {
			return true
		}
	}
	return false
}
