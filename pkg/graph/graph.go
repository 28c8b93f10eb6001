// Package graph builds the character co-occurrence network: two characters
// are connected when they appear in the same window of consecutive
// sentences, weighted by the number of such windows.
package graph

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/castnet/pkg/common"
	"github.com/OFFIS-RIT/castnet/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives the number of scanned windows after each batch.
type ProgressFunc func(done, total int)

// pair is an unordered pair of character indices with a < b.
type pair struct {
	a, b int
}

func newPair(i, j int) pair {
	if i > j {
		i, j = j, i
	}
	return pair{a: i, b: j}
}

// Build scans sentences with a sliding window and returns the resulting
// graph. Characters below opts.MinMentions are left out; when none remain,
// or there are no sentences, the graph is empty. The only errors are
// invalid options and ctx.Err().
func (b *Builder) Build(
	ctx context.Context,
	sentences []string,
	characters []common.Character,
	opts Options,
	onProgress ProgressFunc,
) (common.Graph, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return common.Graph{}, err
	}
	if err := ctx.Err(); err != nil {
		return common.Graph{}, err
	}

	kept := filterCharacters(characters, opts.MinMentions)
	if len(kept) == 0 || len(sentences) == 0 {
		return emptyGraph(), nil
	}

	windows := windowCount(len(sentences), opts.WindowSize)
	lookup := newNameLookup(kept)
	lowered := make([]string, len(sentences))
	for i, s := range sentences {
		lowered[i] = strings.ToLower(s)
	}

	counts, err := b.scan(ctx, lowered, lookup, len(kept), opts.WindowSize, windows, onProgress)
	if err != nil {
		return common.Graph{}, err
	}

	g := materialize(kept, counts, opts.MinEdgeWeight)
	logger.Debug("[Graph] Co-occurrence graph built",
		"sentences", len(sentences),
		"windows", windows,
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
	)
	return g, nil
}

// scan counts pairs per window batch. Batches run under an errgroup and
// their partial counts are merged in batch order.
func (b *Builder) scan(
	ctx context.Context,
	lowered []string,
	lookup nameLookup,
	characterCount int,
	windowSize int,
	windows int,
	onProgress ProgressFunc,
) (map[pair]int, error) {
	batches := (windows + b.batchSize - 1) / b.batchSize
	partials := make([]map[pair]int, batches)

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.parallelBatches)
	mutex := sync.Mutex{}
	done := 0

	for i := range batches {
		start := i * b.batchSize
		end := min(start+b.batchSize, windows)
		eg.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			present := make([]bool, characterCount)
			members := make([]int, 0, characterCount)
			counts := make(map[pair]int)
			for w := start; w < end; w++ {
				last := min(w+windowSize, len(lowered))
				text := strings.Join(lowered[w:last], " ")
				members = lookup.present(text, present, members[:0])
				for x := 0; x < len(members); x++ {
					for y := x + 1; y < len(members); y++ {
						counts[newPair(members[x], members[y])]++
					}
				}
			}
			partials[i] = counts

			mutex.Lock()
			defer mutex.Unlock()
			done += end - start
			if onProgress != nil {
				onProgress(done, windows)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := make(map[pair]int)
	for _, partial := range partials {
		for p, n := range partial {
			merged[p] += n
		}
	}
	return merged, nil
}

// windowCount returns the number of windows of size w over n sentences with
// step 1. Fewer sentences than w still give one window.
func windowCount(n, w int) int {
	if n == 0 {
		return 0
	}
	if n <= w {
		return 1
	}
	return n - w + 1
}

// filterCharacters drops characters below minMentions and later duplicates
// of the same name, keeping the input order.
func filterCharacters(characters []common.Character, minMentions int) []common.Character {
	seen := make(map[string]struct{}, len(characters))
	kept := make([]common.Character, 0, len(characters))
	for _, c := range characters {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if key == "" || c.Mentions < minMentions {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, c)
	}
	return kept
}

func materialize(characters []common.Character, counts map[pair]int, minWeight int) common.Graph {
	g := common.Graph{
		Nodes: make([]common.GraphNode, 0, len(characters)),
		Edges: []common.GraphEdge{},
	}
	for _, c := range characters {
		aliases := make([]string, len(c.Aliases))
		copy(aliases, c.Aliases)
		g.Nodes = append(g.Nodes, common.GraphNode{
			ID:         c.Name,
			Size:       NodeSize(c.Mentions),
			Mentions:   c.Mentions,
			Importance: c.Importance,
			Aliases:    aliases,
		})
	}

	for p, weight := range counts {
		if weight < minWeight {
			continue
		}
		source, target := characters[p.a].Name, characters[p.b].Name
		if target < source {
			source, target = target, source
		}
		g.Edges = append(g.Edges, common.GraphEdge{
			Source: source,
			Target: target,
			Weight: weight,
		})
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].Source == g.Edges[j].Source {
			return g.Edges[i].Target < g.Edges[j].Target
		}
		return g.Edges[i].Source < g.Edges[j].Source
	})
	return g
}

// NodeSize is the display size of a node with the given mention count,
// sqrt(mentions)*3 clamped to [8, 30].
func NodeSize(mentions int) float64 {
	size := math.Sqrt(float64(max(mentions, 0))) * 3
	return math.Max(8, math.Min(30, size))
}

func emptyGraph() common.Graph {
	return common.Graph{Nodes: []common.GraphNode{}, Edges: []common.GraphEdge{}}
}

// nameLookup maps every lowercased name and alias to its owning character.
// Forms are kept sorted so scans visit them in a fixed order.
type nameLookup struct {
	forms  []string
	owners []int
}

func newNameLookup(characters []common.Character) nameLookup {
	owner := make(map[string]int)
	for i, c := range characters {
		for _, name := range c.Names() {
			form := strings.ToLower(strings.TrimSpace(name))
			if form == "" {
				continue
			}
			if _, ok := owner[form]; !ok {
				owner[form] = i
			}
		}
	}

	l := nameLookup{
		forms:  make([]string, 0, len(owner)),
		owners: make([]int, 0, len(owner)),
	}
	for form := range owner {
		l.forms = append(l.forms, form)
	}
	sort.Strings(l.forms)
	for _, form := range l.forms {
		l.owners = append(l.owners, owner[form])
	}
	return l
}

// present appends to members the distinct characters found in text, in
// ascending index order. present is scratch space of one flag per
// character and is cleared before returning.
func (l nameLookup) present(text string, present []bool, members []int) []int {
	for i, form := range l.forms {
		owner := l.owners[i]
		if present[owner] {
			continue
		}
		if strings.Contains(text, form) {
			present[owner] = true
		}
	}
	for i, ok := range present {
		if ok {
			members = append(members, i)
			present[i] = false
		}
	}
	return members
}
