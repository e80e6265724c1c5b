// Package dedup detects near-duplicate events across sources and
// merges duplicate groups into one authoritative record.
package dedup

import (
	"encoding/binary"
	"hash/fnv"
	"strings"
	"time"

	"HackathonScanner/internal/domain"
)

// DefaultThreshold is the weighted-score cutoff above which two
// records are judged duplicates. Heuristic, tunable via config.
const DefaultThreshold = 0.85

// Weights distribute the similarity score across record facets.
type Weights struct {
	Title    float64
	Start    float64
	Location float64
	Online   float64
}

// DefaultWeights carry the observed-behavior distribution; like the
// threshold they are tunable, not derived.
var DefaultWeights = Weights{Title: 0.4, Start: 0.3, Location: 0.2, Online: 0.1}

// startDateSlack is the window within which start dates earn half credit.
const startDateSlack = 3 * 24 * time.Hour

// Fingerprint hashes the semantically meaningful fields for fast
// duplicate pre-filtering. ok is false for malformed records (missing
// title or location), which are never treated as duplicates of
// anything.
func Fingerprint(e domain.Event) (uint64, bool) {
	title := strings.ToLower(strings.TrimSpace(e.Title))
	location := strings.ToLower(strings.TrimSpace(e.Location))
	if title == "" || location == "" {
		return 0, false
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(title))
	_, _ = h.Write([]byte{0})
	writeInt64(h, e.StartsAt.Unix())
	writeInt64(h, e.EndsAt.Unix())
	_, _ = h.Write([]byte(location))
	_, _ = h.Write([]byte{0})
	if e.Online {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}

	return h.Sum64(), true
}

func writeInt64(h interface{ Write([]byte) (int, error) }, v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, _ = h.Write(buf[:])
}

// Similarity computes the weighted score in [0,1] between two events.
// It is pure and symmetric.
func Similarity(a, b domain.Event) float64 {
	return SimilarityWeighted(a, b, DefaultWeights)
}

// SimilarityWeighted is Similarity with explicit weights.
func SimilarityWeighted(a, b domain.Event, w Weights) float64 {
	score := w.Title * textSimilarity(a.Title, b.Title)
	score += w.Start * startSimilarity(a, b)
	score += w.Location * locationSimilarity(a, b)
	if a.Online == b.Online {
		score += w.Online
	}
	return score
}

func textSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func startSimilarity(a, b domain.Event) float64 {
	var credit float64
	switch diff := a.StartsAt.Sub(b.StartsAt).Abs(); {
	case diff == 0:
		credit = 1
	case diff <= startDateSlack:
		credit = 0.5
	default:
		return 0
	}
	// Synthesized placeholder windows carry little signal; discount them.
	if a.DatesSynthesized || b.DatesSynthesized {
		credit /= 2
	}
	return credit
}

func locationSimilarity(a, b domain.Event) float64 {
	// Two virtual events share a venue regardless of how the source
	// spelled it ("Online", "Virtual", "Worldwide", ...).
	if a.Online && b.Online {
		return 1
	}
	return textSimilarity(a.Location, b.Location)
}

// levenshtein is a plain two-row edit distance over runes.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// Group is one cluster of records judged to describe the same event.
// Indices refer to the input slice; Members includes the primary.
type Group struct {
	Primary int
	Members []int
}

// FindDuplicateGroups greedily clusters the input: records are walked
// in order, each unassigned record opens a group and collects every
// later unassigned record whose fingerprint matches or whose weighted
// score reaches the threshold. Malformed records never group.
func FindDuplicateGroups(events []domain.Event, threshold float64) []Group {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	fingerprints := make([]uint64, len(events))
	valid := make([]bool, len(events))
	for i, event := range events {
		fingerprints[i], valid[i] = Fingerprint(event)
	}

	assigned := make([]bool, len(events))
	var groups []Group

	for i := range events {
		if assigned[i] || !valid[i] {
			continue
		}

		group := Group{Primary: i, Members: []int{i}}
		for j := i + 1; j < len(events); j++ {
			if assigned[j] || !valid[j] {
				continue
			}
			if fingerprints[i] == fingerprints[j] || Similarity(events[i], events[j]) >= threshold {
				group.Members = append(group.Members, j)
				assigned[j] = true
			}
		}

		if len(group.Members) > 1 {
			assigned[i] = true
			groups = append(groups, group)
		}
	}

	return groups
}

// Merge collapses a duplicate group into one authoritative record. The
// base is the member from the highest-priority source; on top of it
// the merge takes the longest non-empty description, the earliest
// non-zero registration deadline, and fills registration/website URLs
// the base is missing.
func Merge(events []domain.Event, group Group) domain.Event {
	base := events[group.Primary]
	for _, idx := range group.Members {
		if domain.PriorityRank(events[idx].Source) < domain.PriorityRank(base.Source) {
			base = events[idx]
		}
	}

	merged := base
	for _, idx := range group.Members {
		member := events[idx]
		if len(member.Description) > len(merged.Description) {
			merged.Description = member.Description
		}
		if !member.RegistrationDeadline.IsZero() &&
			(merged.RegistrationDeadline.IsZero() || member.RegistrationDeadline.Before(merged.RegistrationDeadline)) {
			merged.RegistrationDeadline = member.RegistrationDeadline
		}
		if merged.RegistrationURL == "" && member.RegistrationURL != "" {
			merged.RegistrationURL = member.RegistrationURL
		}
		if merged.WebsiteURL == "" && member.WebsiteURL != "" {
			merged.WebsiteURL = member.WebsiteURL
		}
	}

	return merged
}
