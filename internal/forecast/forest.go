package forecast

import (
	"context"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

type ForestConfig struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:           100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		Seed:            42,
	}
}

func (c ForestConfig) withDefaults() ForestConfig {
	d := DefaultForestConfig()
	if c.Trees <= 0 {
		c.Trees = d.Trees
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = d.MinSamplesSplit
	}
	if c.MinSamplesLeaf <= 0 {
		c.MinSamplesLeaf = d.MinSamplesLeaf
	}
	return c
}

// Node is a regression tree node. Leaves have Feature == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest is a bagged ensemble of CART regression trees that consider every
// feature at each split.
type Forest struct {
	Trees       []Tree    `json:"trees"`
	Importances []float64 `json:"importances"`
}

func FitForest(ctx context.Context, cfg ForestConfig, x [][]float64, y []float64) (*Forest, error) {
	cfg = cfg.withDefaults()
	p := 0
	if len(x) > 0 {
		p = len(x[0])
	}

	// Per-tree seeds come from one source so the ensemble is reproducible
	// regardless of scheduling.
	seeds := make([]int64, cfg.Trees)
	src := rand.New(rand.NewSource(cfg.Seed))
	for i := range seeds {
		seeds[i] = src.Int63()
	}

	trees := make([]Tree, cfg.Trees)
	importances := make([][]float64, cfg.Trees)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := &treeBuilder{
				cfg:        cfg,
				x:          x,
				y:          y,
				importance: make([]float64, p),
			}
			rng := rand.New(rand.NewSource(seeds[i]))
			sample := make([]int, len(y))
			for j := range sample {
				sample[j] = rng.Intn(len(y))
			}
			b.build(sample, 0)
			trees[i] = Tree{Nodes: b.nodes}
			importances[i] = normalize(b.importance)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	avg := make([]float64, p)
	for _, imp := range importances {
		for j, v := range imp {
			avg[j] += v
		}
	}

	return &Forest{Trees: trees, Importances: normalize(avg)}, nil
}

func (f *Forest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees))
}

type treeBuilder struct {
	cfg        ForestConfig
	x          [][]float64
	y          []float64
	nodes      []Node
	importance []float64
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	pos       int
	order     []int
}

// build appends the subtree for samples and returns its node index.
func (b *treeBuilder) build(samples []int, depth int) int {
	var sum, sumSq float64
	for _, i := range samples {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(samples))

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: sum / n})

	if depth >= b.cfg.MaxDepth || len(samples) < b.cfg.MinSamplesSplit || len(samples) < 2*b.cfg.MinSamplesLeaf {
		return idx
	}
	parentSSE := sumSq - sum*sum/n
	if parentSSE <= 1e-12 {
		return idx
	}

	best := b.bestSplit(samples, parentSSE)
	if best == nil {
		return idx
	}

	b.importance[best.feature] += best.gain

	left := append([]int(nil), best.order[:best.pos]...)
	right := append([]int(nil), best.order[best.pos:]...)

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	b.nodes[idx].Feature = best.feature
	b.nodes[idx].Threshold = best.threshold
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

func (b *treeBuilder) bestSplit(samples []int, parentSSE float64) *split {
	var best *split
	n := len(samples)
	minLeaf := b.cfg.MinSamplesLeaf
	features := len(b.x[samples[0]])

	for f := 0; f < features; f++ {
		order := append([]int(nil), samples...)
		sort.SliceStable(order, func(a, c int) bool {
			return b.x[order[a]][f] < b.x[order[c]][f]
		})

		var total, totalSq float64
		for _, i := range order {
			total += b.y[i]
			totalSq += b.y[i] * b.y[i]
		}

		var leftSum, leftSq float64
		for pos := 1; pos < n; pos++ {
			v := b.y[order[pos-1]]
			leftSum += v
			leftSq += v * v

			if pos < minLeaf || n-pos < minLeaf {
				continue
			}
			lo, hi := b.x[order[pos-1]][f], b.x[order[pos]][f]
			if lo == hi {
				continue
			}

			nl, nr := float64(pos), float64(n-pos)
			rightSum, rightSq := total-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			gain := parentSSE - sse

			if gain > 1e-12 && (best == nil || gain > best.gain) {
				best = &split{
					feature:   f,
					threshold: lo + (hi-lo)/2,
					gain:      gain,
					pos:       pos,
					order:     order,
				}
			}
		}
	}
	return best
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	var total float64
	for _, x := range v {
		total += x
	}
	if total == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / total
	}
	return out
}
