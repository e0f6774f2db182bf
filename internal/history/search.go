// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package history

// Search looks term up in the history.
//
// The most recent exact match wins. Without one, every entry sharing the
// longest common substring with term is returned in history order, provided
// that substring is at least MinMatch bytes long. Otherwise Search returns nil.
func (r *Recorder) Search(term string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i] == term {
			return []string{r.entries[i]}
		}
	}

	lengths := make([]int, len(r.entries))
	best := 0

	for i, e := range r.entries {
		lengths[i] = longestCommonSubstring(e, term)
		if lengths[i] > best {
			best = lengths[i]
		}
	}

	if best < MinMatch {
		return nil
	}

	var out []string

	for i, e := range r.entries {
		if lengths[i] == best {
			out = append(out, e)
		}
	}

	return out
}

// longestCommonSubstring returns the length of the longest contiguous byte
// sequence present in both a and b.
func longestCommonSubstring(a, b string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	best := 0

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
				}
			} else {
				cur[j] = 0
			}
		}

		prev, cur = cur, prev
	}

	return best
}
