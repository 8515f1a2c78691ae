package core

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"farm_service/internal/domain/model"
)

// DefaultTrees is the forest size used when ForestConfig.Trees is zero.
const DefaultTrees = 100

// featureThreshold is the smallest gap between two values that a split may separate.
const featureThreshold = 1e-7

// ForestConfig controls random forest fitting.
type ForestConfig struct {
	Trees           int
	MaxFeatures     int // candidate features per split; 0 means floor(sqrt(NumFeatures))
	MinSamplesSplit int // 0 means 2
	MaxDepth        int // 0 means unlimited
	Seed            uint64
	Workers         int // parallel tree fits; 0 means GOMAXPROCS
}

func (c ForestConfig) withDefaults() ForestConfig {
	if c.Trees <= 0 {
		c.Trees = DefaultTrees
	}
	if c.MaxFeatures <= 0 || c.MaxFeatures > model.NumFeatures {
		c.MaxFeatures = int(math.Sqrt(model.NumFeatures))
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = 2
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

type treeNode struct {
	Feature   int
	Threshold float64
	Left      int // -1 on leaves
	Right     int
	Proba     [model.NumLabels]float64
}

type decisionTree struct {
	nodes []treeNode
}

func (t *decisionTree) predictProba(x [model.NumFeatures]float64) [model.NumLabels]float64 {
	i := 0
	for {
		n := &t.nodes[i]
		if n.Left < 0 {
			return n.Proba
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (t *decisionTree) depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.nodes[i]
		if n.Left < 0 {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// RandomForest is a bagged ensemble of CART classification trees.
type RandomForest struct {
	trees []*decisionTree
}

// FitForest grows cfg.Trees trees on bootstrap samples of (x, y). Tree i
// draws from its own stream seeded with (cfg.Seed, i), so the fitted forest
// does not depend on how the fits are scheduled.
func FitForest(ctx context.Context, x [][model.NumFeatures]float64, y []model.RiskLabel, cfg ForestConfig) (*RandomForest, error) {
	if len(x) == 0 {
		return nil, errors.New("cannot fit forest on empty data")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("feature rows (%d) and labels (%d) differ", len(x), len(y))
	}
	for i, l := range y {
		if !l.Valid() {
			return nil, fmt.Errorf("row %d has invalid label %d", i, int(l))
		}
	}
	cfg = cfg.withDefaults()

	trees := make([]*decisionTree, cfg.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
			trees[i] = growTree(x, y, r, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("forest fit interrupted: %w", err)
	}
	return &RandomForest{trees: trees}, nil
}

// Trees returns the number of fitted trees.
func (f *RandomForest) Trees() int { return len(f.trees) }

// MaxDepth returns the depth of the deepest tree.
func (f *RandomForest) MaxDepth() int {
	d := 0
	for _, t := range f.trees {
		d = max(d, t.depth())
	}
	return d
}

// PredictProba averages the leaf class distributions of every tree.
func (f *RandomForest) PredictProba(x [model.NumFeatures]float64) [model.NumLabels]float64 {
	var sum [model.NumLabels]float64
	for _, t := range f.trees {
		p := t.predictProba(x)
		for k := range sum {
			sum[k] += p[k]
		}
	}
	var total float64
	for _, v := range sum {
		total += v
	}
	if total > 0 {
		for k := range sum {
			sum[k] /= total
		}
	}
	return sum
}

// Predict returns the most probable label; ties go to the less severe label.
func (f *RandomForest) Predict(x [model.NumFeatures]float64) (model.RiskLabel, [model.NumLabels]float64) {
	proba := f.PredictProba(x)
	return argmax(proba), proba
}

func argmax(p [model.NumLabels]float64) model.RiskLabel {
	best := 0
	for k := 1; k < len(p); k++ {
		if p[k] > p[best] {
			best = k
		}
	}
	return model.RiskLabel(best)
}

type treeBuilder struct {
	x    [][model.NumFeatures]float64
	y    []model.RiskLabel
	r    *rand.Rand
	cfg  ForestConfig
	tree *decisionTree
}

func growTree(x [][model.NumFeatures]float64, y []model.RiskLabel, r *rand.Rand, cfg ForestConfig) *decisionTree {
	n := len(x)
	sample := make([]int, n)
	for i := range sample {
		sample[i] = r.IntN(n)
	}
	b := &treeBuilder{x: x, y: y, r: r, cfg: cfg, tree: &decisionTree{}}
	b.build(sample, 0)
	return b.tree
}

func (b *treeBuilder) counts(idx []int) [model.NumLabels]int {
	var c [model.NumLabels]int
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

func (b *treeBuilder) build(idx []int, depth int) int {
	counts := b.counts(idx)
	node := treeNode{Left: -1, Right: -1}
	for k, c := range counts {
		node.Proba[k] = float64(c) / float64(len(idx))
	}
	pos := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, node)

	if isPure(counts) || len(idx) < b.cfg.MinSamplesSplit || (b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth) {
		return pos
	}
	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return pos
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	b.tree.nodes[pos].Feature = feature
	b.tree.nodes[pos].Threshold = threshold
	b.tree.nodes[pos].Left = l
	b.tree.nodes[pos].Right = r
	return pos
}

// bestSplit searches MaxFeatures randomly chosen non-constant features for
// the Gini-optimal threshold. Constant features do not use up the budget.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	sorted := make([]int, len(idx))
	bestScore := math.Inf(-1)
	bestFeature, bestThreshold := -1, 0.0
	visited := 0

	for _, f := range b.r.Perm(model.NumFeatures) {
		if visited >= b.cfg.MaxFeatures {
			break
		}
		copy(sorted, idx)
		slices.SortFunc(sorted, func(a, c int) int {
			if v := cmp.Compare(b.x[a][f], b.x[c][f]); v != 0 {
				return v
			}
			return cmp.Compare(a, c)
		})
		if b.x[sorted[len(sorted)-1]][f] <= b.x[sorted[0]][f]+featureThreshold {
			continue
		}
		visited++

		var left [model.NumLabels]int
		right := b.counts(sorted)
		for k := 0; k < len(sorted)-1; k++ {
			lbl := b.y[sorted[k]]
			left[lbl]++
			right[lbl]--

			cur, next := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if next <= cur+featureThreshold {
				continue
			}
			score := giniProxy(left, k+1) + giniProxy(right, len(sorted)-k-1)
			if score > bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = cur/2 + next/2
				if bestThreshold == next || math.IsInf(bestThreshold, 0) || math.IsNaN(bestThreshold) {
					bestThreshold = cur
				}
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// giniProxy is sum(c^2)/n. Maximising its sum over both children minimises
// the weighted Gini impurity of the split.
func giniProxy(counts [model.NumLabels]int, n int) float64 {
	if n == 0 {
		return 0
	}
	var sq float64
	for _, c := range counts {
		sq += float64(c) * float64(c)
	}
	return sq / float64(n)
}

func isPure(counts [model.NumLabels]int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}
