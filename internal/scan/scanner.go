package scan

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MJE43/roulette-sim/internal/engine"
	"github.com/MJE43/roulette-sim/internal/games"
)

// TargetOp represents comparison operations for scanning
type TargetOp string

const (
	OpEqual        TargetOp = "eq"
	OpGreater      TargetOp = "gt"
	OpGreaterEqual TargetOp = "ge"
	OpLess         TargetOp = "lt"
	OpLessEqual    TargetOp = "le"
	OpBetween      TargetOp = "between"
	OpOutside      TargetOp = "outside"
)

// Ops lists every supported operation.
func Ops() []TargetOp {
	return []TargetOp{OpEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpBetween, OpOutside}
}

// MaxRange caps the nonces one scan may simulate.
const MaxRange = 100_000

// ScanRequest represents a scan operation request
type ScanRequest struct {
	Game       string         `json:"game"`
	Seeds      engine.Seeds   `json:"seeds"`
	NonceStart uint64         `json:"nonce_start"`
	NonceEnd   uint64         `json:"nonce_end"`
	Params     map[string]any `json:"params,omitempty"`
	TargetOp   TargetOp       `json:"target_op"`
	TargetVal  float64        `json:"target_val"`
	TargetVal2 float64        `json:"target_val2,omitempty"` // for "between" and "outside"
	Tolerance  float64        `json:"tolerance,omitempty"`
	Limit      int            `json:"limit,omitempty"`
	TimeoutMs  int            `json:"timeout_ms,omitempty"`
}

// Hit represents a single matching result
type Hit struct {
	Nonce  uint64  `json:"nonce"`
	Metric float64 `json:"metric"`
}

// Summary contains aggregate statistics
type Summary struct {
	TotalEvaluated uint64  `json:"total_evaluated"`
	HitsFound      int     `json:"hits_found"`
	MinMetric      float64 `json:"min_metric"`
	MaxMetric      float64 `json:"max_metric"`
	MeanMetric     float64 `json:"mean_metric"`
	TimedOut       bool    `json:"timed_out,omitempty"`
}

// ScanResult contains the complete scan results
type ScanResult struct {
	Hits    []Hit       `json:"hits"`
	Summary Summary     `json:"summary"`
	Echo    ScanRequest `json:"echo"`
}

// job is a batch of nonces, inclusive on both ends.
type job struct {
	start, end uint64
}

// TargetEvaluator handles target condition evaluation with tolerance
type TargetEvaluator struct {
	op        TargetOp
	val1      float64
	val2      float64
	tolerance float64
}

// NewTargetEvaluator creates a new target evaluator
func NewTargetEvaluator(op TargetOp, val1, val2, tolerance float64) *TargetEvaluator {
	return &TargetEvaluator{op: op, val1: val1, val2: val2, tolerance: tolerance}
}

// Matches checks if a metric matches the target criteria
func (te *TargetEvaluator) Matches(metric float64) bool {
	switch te.op {
	case OpEqual:
		return abs(metric-te.val1) <= te.tolerance
	case OpGreater:
		return metric > te.val1+te.tolerance
	case OpGreaterEqual:
		return metric >= te.val1-te.tolerance
	case OpLess:
		return metric < te.val1-te.tolerance
	case OpLessEqual:
		return metric <= te.val1+te.tolerance
	case OpBetween:
		return metric >= te.val1-te.tolerance && metric <= te.val2+te.tolerance
	case OpOutside:
		return metric < te.val1-te.tolerance || metric > te.val2+te.tolerance
	default:
		return false
	}
}

// Scanner replays nonce ranges in parallel. Every nonce of the physical
// game is a full simulation, so batches stay small.
type Scanner struct {
	workerCount int
	batchSize   uint64
	logger      *zap.Logger
	overrides   map[string]games.Game
}

// NewScanner creates a scanner with one worker per available CPU.
func NewScanner(logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   256,
		logger:      logger,
		overrides:   make(map[string]games.Game),
	}
}

// Override scans with g instead of the registered game of the same id.
// Call it before the scanner is shared.
func (s *Scanner) Override(g games.Game) {
	s.overrides[g.Spec().ID] = g
}

func (s *Scanner) game(id string) games.Game {
	if g, ok := s.overrides[id]; ok {
		return g
	}
	g, _ := games.Get(id)
	return g
}

// Validate checks a request before any work starts.
func (req *ScanRequest) Validate() error {
	if _, ok := games.Get(req.Game); !ok {
		return fmt.Errorf("%w: %q", ErrGameNotFound, req.Game)
	}
	if req.NonceEnd < req.NonceStart {
		return fmt.Errorf("%w: nonce_end %d < nonce_start %d", ErrInvalidRange, req.NonceEnd, req.NonceStart)
	}
	if req.NonceEnd-req.NonceStart >= MaxRange {
		return fmt.Errorf("%w: more than %d nonces", ErrInvalidRange, MaxRange)
	}
	if !slices.Contains(Ops(), req.TargetOp) {
		return fmt.Errorf("%w: %q", ErrInvalidOp, req.TargetOp)
	}
	if (req.TargetOp == OpBetween || req.TargetOp == OpOutside) && req.TargetVal > req.TargetVal2 {
		return fmt.Errorf("%w: target_val must be <= target_val2 for %q", ErrInvalidOp, req.TargetOp)
	}
	return nil
}

// Scan evaluates every nonce in [NonceStart, NonceEnd] and returns the
// matches in nonce order. A timeout returns what was found so far.
func (s *Scanner) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	game := s.game(req.Game)

	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	// Pocket numbers are integers, so an exact comparison is the default.
	evaluator := NewTargetEvaluator(req.TargetOp, req.TargetVal, req.TargetVal2, req.Tolerance)

	start := time.Now()
	jobs := make(chan job, s.workerCount*2)
	hits := make(chan Hit, 1024)
	var evaluated atomic.Uint64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for cur := req.NonceStart; cur <= req.NonceEnd; {
			end := req.NonceEnd
			if end-cur >= s.batchSize {
				end = cur + s.batchSize - 1
			}
			select {
			case jobs <- job{start: cur, end: end}:
			case <-gctx.Done():
				return gctx.Err()
			}
			if end == req.NonceEnd {
				break
			}
			cur = end + 1
		}
		return nil
	})

	for i := 0; i < s.workerCount; i++ {
		g.Go(func() error {
			for j := range jobs {
				for nonce := j.start; ; nonce++ {
					if err := gctx.Err(); err != nil {
						return err
					}
					res, err := game.Evaluate(req.Seeds, nonce, req.Params)
					if err != nil {
						return fmt.Errorf("nonce %d: %w", nonce, err)
					}
					evaluated.Add(1)
					if evaluator.Matches(res.Metric) {
						select {
						case hits <- Hit{Nonce: nonce, Metric: res.Metric}:
						case <-gctx.Done():
							return gctx.Err()
						}
					}
					if nonce == j.end {
						break
					}
				}
			}
			return nil
		})
	}

	var waitErr error
	done := make(chan struct{})
	go func() {
		waitErr = g.Wait()
		close(hits)
		close(done)
	}()

	collected := make([]Hit, 0, 64)
	for hit := range hits {
		collected = append(collected, hit)
	}
	<-done

	timedOut := false
	if waitErr != nil {
		if !errors.Is(waitErr, context.DeadlineExceeded) || ctx.Err() == nil {
			return nil, waitErr
		}
		timedOut = true
	}

	slices.SortFunc(collected, func(a, b Hit) int {
		switch {
		case a.Nonce < b.Nonce:
			return -1
		case a.Nonce > b.Nonce:
			return 1
		}
		return 0
	})
	if req.Limit > 0 && len(collected) > req.Limit {
		collected = collected[:req.Limit]
	}

	summary := calculateSummary(collected, evaluated.Load(), timedOut)
	s.logger.Info("scan completed",
		zap.String("game", req.Game),
		zap.String("server_hash", engine.HashServerSeed(req.Seeds.Server)),
		zap.Uint64("nonce_start", req.NonceStart),
		zap.Uint64("nonce_end", req.NonceEnd),
		zap.Uint64("evaluated", summary.TotalEvaluated),
		zap.Int("hits", summary.HitsFound),
		zap.Bool("timed_out", timedOut),
		zap.Duration("duration", time.Since(start)),
	)

	return &ScanResult{Hits: collected, Summary: summary, Echo: req}, nil
}

// calculateSummary computes aggregate statistics over the returned hits.
func calculateSummary(hits []Hit, totalEvaluated uint64, timedOut bool) Summary {
	summary := Summary{
		TotalEvaluated: totalEvaluated,
		HitsFound:      len(hits),
		TimedOut:       timedOut,
	}
	if len(hits) == 0 {
		return summary
	}

	lo, hi, sum := hits[0].Metric, hits[0].Metric, 0.0
	for _, h := range hits {
		lo = min(lo, h.Metric)
		hi = max(hi, h.Metric)
		sum += h.Metric
	}
	summary.MinMetric = lo
	summary.MaxMetric = hi
	summary.MeanMetric = sum / float64(len(hits))
	return summary
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
