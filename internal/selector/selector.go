package selector

// demoted lists the low-value suffixes pushed to the back of the
// result: debug symbols, libraries and checksum sidecars.
var demoted = []Marker{
	{Text: ".pdb", Pos: Suffix},
	{Text: ".dll", Pos: Suffix},
	{Text: ".txt", Pos: Suffix},
	{Text: ".checksum", Pos: Suffix},
	{Text: ".sha", Pos: Suffix},
	{Text: ".sha256", Pos: Suffix},
}

// muslMarkers flag assets built against musl libc.
var muslMarkers = []Marker{{Text: "musl"}}

// MatchOne reports whether candidate satisfies the marker set under the
// given combination rule.
func MatchOne(candidate string, set []Marker, comb Combination, caseSensitive bool) bool {
	if comb == All {
		for _, m := range set {
			if !m.match(candidate, caseSensitive) {
				return false
			}
		}
		return true
	}
	for _, m := range set {
		if m.match(candidate, caseSensitive) {
			return true
		}
	}
	return false
}

// FilterBy keeps only the candidates matching the marker set,
// preserving their relative order. The result is always a subsequence
// of the input; an empty result is legitimate.
func FilterBy(candidates []string, set []Marker, comb Combination, caseSensitive bool) []string {
	var kept []string
	for _, c := range candidates {
		if MatchOne(c, set, comb, caseSensitive) {
			kept = append(kept, c)
		}
	}
	return kept
}

// RankBy stably partitions candidates so that matching ones come
// first, then optionally reverses the whole slice. The input is not
// modified.
func RankBy(candidates []string, set []Marker, comb Combination, caseSensitive, reverse bool) []string {
	ranked := make([]string, 0, len(candidates))
	var rest []string
	for _, c := range candidates {
		if MatchOne(c, set, comb, caseSensitive) {
			ranked = append(ranked, c)
		} else {
			rest = append(rest, c)
		}
	}
	ranked = append(ranked, rest...)
	if reverse {
		for i, j := 0, len(ranked)-1; i < j; i, j = i+1, j-1 {
			ranked[i], ranked[j] = ranked[j], ranked[i]
		}
	}
	return ranked
}

// Select runs the full pipeline: platform filter, architecture filter,
// then demotion of low-value suffixes. Each stage is strict. A stage
// that eliminates every candidate yields an empty result, which the
// caller must treat as "no matching asset" rather than retrying with
// relaxed criteria.
func (c Catalog) Select(candidates []string) []string {
	out := FilterBy(candidates, c.Platform, Any, false)
	out = FilterBy(out, c.Arch, Any, false)
	out = RankBy(out, demoted, Any, false, true)
	return out
}

// PreferLibc orders candidates by libc flavor: musl-marked assets
// first when musl is wanted, last otherwise. Candidates without a libc
// marker are unaffected relative to each other.
func PreferLibc(candidates []string, wantMusl bool) []string {
	if wantMusl {
		return RankBy(candidates, muslMarkers, Any, false, false)
	}
	// gnu preferred: musl sinks to the back while everything else
	// keeps its relative order.
	var gnu, musl []string
	for _, c := range candidates {
		if MatchOne(c, muslMarkers, Any, false) {
			musl = append(musl, c)
		} else {
			gnu = append(gnu, c)
		}
	}
	return append(gnu, musl...)
}
