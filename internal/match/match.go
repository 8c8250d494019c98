// Package match resolves product pattern codes to candidate image files by
// filename alone. Vendor filenames sometimes keep the separators embedded in
// the pattern code and sometimes strip them, so candidates are accepted on
// either the raw or the normalized form.
package match

import (
	"sort"
	"strings"

	"github.com/vizzaro-home/wallsync/internal/remote"
)

// MaxCandidates bounds upload volume per record: a primary image plus up to
// two supporting shots.
const MaxCandidates = 3

// roomKeyword marks lifestyle/"room scene" shots, ranked after primaries.
const roomKeyword = "room"

// Candidates returns up to MaxCandidates images matching the record id,
// best first. Ranking is deterministic for a fixed pool: primaries before
// room scenes, shortest filename first within each group (the shortest name
// is usually the canonical asset; longer names carry variant suffixes).
func Candidates(id string, pool []remote.Entry) []remote.Entry {
	idNorm := normalize(id)
	if idNorm == "" {
		return nil
	}
	idLower := strings.ToLower(strings.TrimSpace(id))

	var matched []remote.Entry
	for _, e := range pool {
		nameLower := strings.ToLower(e.Name)
		if strings.Contains(nameLower, idLower) || strings.Contains(normalize(e.Name), idNorm) {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		ri, rj := isRoomScene(matched[i].Name), isRoomScene(matched[j].Name)
		if ri != rj {
			return !ri
		}
		return len(matched[i].Name) < len(matched[j].Name)
	})

	if len(matched) > MaxCandidates {
		matched = matched[:MaxCandidates]
	}
	return matched
}

func isRoomScene(name string) bool {
	return strings.Contains(strings.ToLower(name), roomKeyword)
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
