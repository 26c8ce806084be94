package morph

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"proteus/internal/model"
)

// ErrNoViableBasis reports that every sampled candidate basis was degenerate.
// Retrying with more trials or a lower degree budget may succeed.
var ErrNoViableBasis = errors.New("no viable morphing basis found")

// basisSeedStride separates the trial seed namespaces of independently
// optimized bases.
const basisSeedStride = int64(1) << 32

type OptimizeConfig struct {
	Components     []model.Component
	Ranges         [][2]float64
	Fixed          [][]float64
	NTrials        int
	NTestThetas    int
	NBases         int
	Seed           int64
	Workers        int
	ConditionLimit float64
}

// OptimizeResult carries the winning basis with its stacked inverse matrix
// and the diagnostics of the search. BestScore, BestCondition, BestTrial and
// the score statistics describe the first basis, the one holding the fixed
// benchmarks.
type OptimizeResult struct {
	Basis           [][]float64
	Matrix          *mat.Dense
	NBases          int
	BestScore       float64
	BestCondition   float64
	BestTrial       int
	Trials          int
	DegenerateCount int
	ScoreMean       float64
	ScoreStdDev     float64
	Elapsed         time.Duration
}

// OptimizeBasis searches NTrials random candidate bases per basis and keeps
// the one with the lowest expected squared weight sum over NTestThetas
// validation points. Trial t draws from its own generator seeded with
// Seed+t, so results are reproducible and independent of worker scheduling,
// and the first n trials of a longer run match a shorter run exactly. Exact
// score ties resolve to the earlier trial.
func OptimizeBasis(ctx context.Context, cfg OptimizeConfig) (OptimizeResult, error) {
	start := time.Now()

	dim, err := componentDim(cfg.Components)
	if err != nil {
		return OptimizeResult{}, err
	}
	if len(cfg.Ranges) != dim {
		return OptimizeResult{}, fmt.Errorf("sampling ranges mismatch: got=%d want=%d", len(cfg.Ranges), dim)
	}
	for i, r := range cfg.Ranges {
		if r[0] > r[1] {
			return OptimizeResult{}, fmt.Errorf("sampling range %d is inverted: [%g, %g]", i, r[0], r[1])
		}
	}
	n := len(cfg.Components)
	if len(cfg.Fixed) > n {
		return OptimizeResult{}, fmt.Errorf("fixed benchmarks exceed component count: got=%d want at most %d", len(cfg.Fixed), n)
	}
	for i, point := range cfg.Fixed {
		if len(point) != dim {
			return OptimizeResult{}, fmt.Errorf("fixed benchmark %d dimension mismatch: got=%d want=%d", i, len(point), dim)
		}
	}
	if cfg.NTrials <= 0 {
		return OptimizeResult{}, fmt.Errorf("trial count must be > 0")
	}
	if cfg.NTestThetas <= 0 {
		return OptimizeResult{}, fmt.Errorf("test theta count must be > 0")
	}
	if cfg.NBases <= 0 {
		cfg.NBases = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	result := OptimizeResult{
		NBases: cfg.NBases,
		Matrix: mat.NewDense(cfg.NBases*n, n, nil),
		Basis:  make([][]float64, 0, cfg.NBases*n),
	}
	for b := 0; b < cfg.NBases; b++ {
		// Fixed benchmarks live in the first basis only.
		fixed := cfg.Fixed
		if b > 0 {
			fixed = nil
		}
		single, err := optimizeSingle(ctx, cfg, cfg.Seed+int64(b)*basisSeedStride, fixed)
		if err != nil {
			return OptimizeResult{}, err
		}

		result.Basis = append(result.Basis, single.basis...)
		result.Matrix.Slice(b*n, (b+1)*n, 0, n).(*mat.Dense).Copy(single.inverse)
		result.Trials += cfg.NTrials
		result.DegenerateCount += single.degenerate
		if b == 0 {
			result.BestScore = single.score
			result.BestCondition = single.cond
			result.BestTrial = single.trial
			result.ScoreMean = stat.Mean(single.scores, nil)
			if len(single.scores) > 1 {
				result.ScoreStdDev = stat.StdDev(single.scores, nil)
			}
		}
	}
	result.Elapsed = time.Since(start)
	return result, nil
}

type singleBasis struct {
	basis      [][]float64
	inverse    *mat.Dense
	score      float64
	cond       float64
	trial      int
	degenerate int
	scores     []float64
}

func optimizeSingle(ctx context.Context, cfg OptimizeConfig, seed int64, fixed [][]float64) (singleBasis, error) {
	n := len(cfg.Components)
	sampled := n - len(fixed)

	type result struct {
		trial      int
		basis      [][]float64
		inverse    *mat.Dense
		score      float64
		cond       float64
		degenerate bool
		err        error
	}

	jobs := make(chan int)
	results := make(chan result, cfg.NTrials)

	workerCount := cfg.Workers
	if workerCount > cfg.NTrials {
		workerCount = cfg.NTrials
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for trial := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{trial: trial, err: err}
					continue
				}

				rng := rand.New(rand.NewSource(seed + int64(trial)))
				candidate := make([][]float64, 0, n)
				candidate = append(candidate, fixed...)
				for i := 0; i < sampled; i++ {
					candidate = append(candidate, samplePoint(rng, cfg.Ranges))
				}

				inverse, cond, err := CalculateMatrix(cfg.Components, candidate, cfg.ConditionLimit)
				if err != nil {
					if errors.Is(err, ErrDegenerateBasis) {
						results <- result{trial: trial, degenerate: true}
						continue
					}
					results <- result{trial: trial, err: err}
					continue
				}

				score, err := scoreBasis(cfg, inverse, rng)
				if err != nil {
					results <- result{trial: trial, err: err}
					continue
				}
				results <- result{trial: trial, basis: candidate, inverse: inverse, score: score, cond: cond}
			}
		}()
	}

	for trial := 0; trial < cfg.NTrials; trial++ {
		jobs <- trial
	}
	close(jobs)

	wg.Wait()
	close(results)

	best := singleBasis{trial: -1}
	scores := make([]float64, 0, cfg.NTrials)
	for res := range results {
		if res.err != nil {
			return singleBasis{}, res.err
		}
		if res.degenerate {
			best.degenerate++
			continue
		}
		scores = append(scores, res.score)
		if best.trial < 0 || res.score < best.score || (res.score == best.score && res.trial < best.trial) {
			best.basis = res.basis
			best.inverse = res.inverse
			best.score = res.score
			best.cond = res.cond
			best.trial = res.trial
		}
	}
	if best.trial < 0 {
		return singleBasis{}, fmt.Errorf("%w after %d trials (%d degenerate)", ErrNoViableBasis, cfg.NTrials, best.degenerate)
	}
	best.scores = scores
	return best, nil
}

// scoreBasis estimates the expected squared weight sum over validation
// points drawn from the sampling ranges. Lower means the basis extrapolates
// with smaller weights.
func scoreBasis(cfg OptimizeConfig, inverse *mat.Dense, rng *rand.Rand) (float64, error) {
	total := 0.0
	for t := 0; t < cfg.NTestThetas; t++ {
		theta := samplePoint(rng, cfg.Ranges)
		weights, err := Weights(cfg.Components, inverse, theta)
		if err != nil {
			return 0, err
		}
		total += floats.Dot(weights, weights)
	}
	return total / float64(cfg.NTestThetas), nil
}

func samplePoint(rng *rand.Rand, ranges [][2]float64) []float64 {
	point := make([]float64, len(ranges))
	for i, r := range ranges {
		point[i] = r[0] + rng.Float64()*(r[1]-r[0])
	}
	return point
}
