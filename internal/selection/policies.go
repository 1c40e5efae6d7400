package selection

import (
	"fmt"
	"math"
)

// FirstUnseen returns the first id in catalog order the user has never been
// assigned. Once everything has been seen it picks uniformly at random and
// reports AlreadySeen.
type FirstUnseen struct {
	Rand Rand
}

func (p FirstUnseen) Select(in Input) (Result, error) {
	if len(in.Ordered) == 0 {
		return Result{}, ErrNoSections
	}
	seen := toSet(in.Assigned)
	for _, id := range in.Ordered {
		if _, ok := seen[id]; !ok {
			return Result{IDs: []string{id}}, nil
		}
	}
	id := in.Ordered[orDefault(p.Rand).IntN(len(in.Ordered))]
	return Result{IDs: []string{id}, AlreadySeen: true}, nil
}

// IndexPaired selects the id at the anchor's position in its own ordered
// list, wrapping when the target list is shorter.
type IndexPaired struct{}

func (IndexPaired) Select(in Input) (Result, error) {
	if len(in.Ordered) == 0 {
		return Result{}, ErrNoSections
	}
	idx := -1
	for i, id := range in.Anchor.Ordered {
		if id == in.Anchor.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Result{}, fmt.Errorf("anchor section %q not in catalog", in.Anchor.ID)
	}
	return Result{IDs: []string{in.Ordered[idx%len(in.Ordered)]}}, nil
}

// PriorityShuffle offers Count ids (default 2): never-assigned ids first, each
// group shuffled independently. With fewer candidates than requested the
// last pick is repeated.
type PriorityShuffle struct {
	Rand Rand
}

func (p PriorityShuffle) Select(in Input) (Result, error) {
	if len(in.Ordered) == 0 {
		return Result{}, ErrNoSections
	}
	n := in.Count
	if n <= 0 {
		n = 2
	}
	r := orDefault(p.Rand)
	seen := toSet(in.Assigned)
	var unseen, used []string
	for _, id := range in.Ordered {
		if _, ok := seen[id]; ok {
			used = append(used, id)
		} else {
			unseen = append(unseen, id)
		}
	}
	r.Shuffle(len(unseen), func(i, j int) { unseen[i], unseen[j] = unseen[j], unseen[i] })
	r.Shuffle(len(used), func(i, j int) { used[i], used[j] = used[j], used[i] })
	pool := append(unseen, used...)

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if i < len(pool) {
			out = append(out, pool[i])
		} else {
			out = append(out, out[len(out)-1])
		}
	}
	return Result{IDs: out, AlreadySeen: len(unseen) == 0}, nil
}

// Weights applied by LeastUsed.
const (
	AssignedWeight = 1.0
	OfferedWeight  = 0.5
)

// LeastUsed picks Count ids (default 1) uniformly among the ids with the
// lowest usage weight, cycling through them when more picks are requested
// than there are minimum-weight ids.
type LeastUsed struct {
	Rand Rand
}

func (p LeastUsed) Select(in Input) (Result, error) {
	if len(in.Ordered) == 0 {
		return Result{}, ErrNoSections
	}
	n := in.Count
	if n <= 0 {
		n = 1
	}
	weights := make(map[string]float64, len(in.Ordered))
	for _, id := range in.Ordered {
		weights[id] = 0
	}
	for _, id := range in.Assigned {
		if _, ok := weights[id]; ok {
			weights[id] += AssignedWeight
		}
	}
	for _, id := range in.Offered {
		if _, ok := weights[id]; ok {
			weights[id] += OfferedWeight
		}
	}

	lowest := math.Inf(1)
	for _, id := range in.Ordered {
		if weights[id] < lowest {
			lowest = weights[id]
		}
	}
	var candidates []string
	for _, id := range in.Ordered {
		if weights[id] == lowest {
			candidates = append(candidates, id)
		}
	}

	r := orDefault(p.Rand)
	r.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	out := make([]string, n)
	for i := range out {
		out[i] = candidates[i%len(candidates)]
	}
	return Result{IDs: out, AlreadySeen: lowest > 0}, nil
}
