package timetable

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

// SolverState is the lifecycle of a Solver.
type SolverState int32

const (
	StateIdle SolverState = iota
	StateRunning
	StateCompleted
	StateTimedOut
	StateCancelled
)

func (s SolverState) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateTimedOut:
		return "TIMED_OUT"
	case StateCancelled:
		return "CANCELLED"
	default:
		return "IDLE"
	}
}

// MarshalText renders the state name.
func (s SolverState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *SolverState) UnmarshalText(text []byte) error {
	for _, candidate := range []SolverState{StateIdle, StateRunning, StateCompleted, StateTimedOut, StateCancelled} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown solver state %q", text)
}

// Terminal reports whether a run has ended.
func (s SolverState) Terminal() bool {
	return s == StateCompleted || s == StateTimedOut || s == StateCancelled
}

// Clock supplies the time the solver budget is measured against.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Defaults applied by NewSolver to zero-valued fields.
const (
	DefaultTimeBudget           = 30 * time.Second
	DefaultInitialTemperature   = 200.0
	DefaultFinalTemperature     = 0.5
	DefaultHardWeight           = 1000
	DefaultSwapProbability      = 0.3
	DefaultClassroomProbability = 0.2
)

// Improvement is reported every time the best-so-far score improves.
type Improvement struct {
	Iteration int64
	Elapsed   time.Duration
	Score     Score
}

// SolverConfig tunes one run.
type SolverConfig struct {
	TimeBudget           time.Duration
	Seed                 int64
	InitialTemperature   float64
	FinalTemperature     float64
	HardWeight           int64
	SwapProbability      float64
	ClassroomProbability float64
	Score                ScoreConfig
	Clock                Clock
	Logger               *zap.Logger
	OnImprovement        func(Improvement)
}

func (c SolverConfig) withDefaults() SolverConfig {
	if c.TimeBudget <= 0 {
		c.TimeBudget = DefaultTimeBudget
	}
	if c.InitialTemperature <= 0 {
		c.InitialTemperature = DefaultInitialTemperature
	}
	if c.FinalTemperature <= 0 || c.FinalTemperature > c.InitialTemperature {
		c.FinalTemperature = math.Min(DefaultFinalTemperature, c.InitialTemperature)
	}
	if c.HardWeight <= 0 {
		c.HardWeight = DefaultHardWeight
	}
	if c.SwapProbability <= 0 || c.SwapProbability > 1 {
		c.SwapProbability = DefaultSwapProbability
	}
	if c.ClassroomProbability <= 0 || c.SwapProbability+c.ClassroomProbability > 1 {
		c.ClassroomProbability = math.Max(0, math.Min(DefaultClassroomProbability, 1-c.SwapProbability))
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Result summarises a run. Entries and Conflicts are filled by SolveTimetable.
type Result struct {
	ScheduleID   string                 `json:"schedule_id"`
	Entries      []models.ScheduleEntry `json:"entries"`
	Score        Score                  `json:"score"`
	Status       SolverState            `json:"status"`
	Iterations   int64                  `json:"iterations"`
	Accepted     int64                  `json:"accepted"`
	Improvements int64                  `json:"improvements"`
	Elapsed      time.Duration          `json:"elapsed"`
	Conflicts    []models.Conflict      `json:"conflicts,omitempty"`
}

// Solver runs simulated annealing over a Problem. A Solver runs once.
type Solver struct {
	cfg   SolverConfig
	state atomic.Int32
}

// NewSolver constructs a Solver.
func NewSolver(cfg SolverConfig) *Solver {
	return &Solver{cfg: cfg.withDefaults()}
}

// State returns the current lifecycle state; it is safe to call from any goroutine.
func (s *Solver) State() SolverState {
	return SolverState(s.state.Load())
}

type moveKind int

const (
	moveRelocate moveKind = iota
	moveClassroom
	moveSwap
)

type move struct {
	kind moveKind
	a, b int
	prev Placement
}

// Solve improves p's assignment until the budget is spent, the score is perfect or
// ctx is done, then leaves p holding the best assignment seen.
func (s *Solver) Solve(ctx context.Context, p *Problem) (Result, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return Result{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "solver has already run")
	}
	cfg := s.cfg
	rng := rand.New(rand.NewSource(cfg.Seed))
	scorer := NewScorer(p, cfg.Score)

	start := cfg.Clock.Now()
	current := scorer.Score()
	best := current
	bestPlacements := p.snapshot()
	result := Result{}

	cfg.Logger.Debug("solver started",
		zap.Int("occurrences", p.Len()),
		zap.Int("slots", len(p.grid)),
		zap.Int("classrooms", len(p.classrooms)),
		zap.Duration("budget", cfg.TimeBudget),
		zap.Int64("seed", cfg.Seed),
		zap.Stringer("score", current),
	)

	status := StateTimedOut
	if p.Len() == 0 || current.Perfect() {
		status = StateCompleted
	}

	for status == StateTimedOut {
		select {
		case <-ctx.Done():
			status = StateCancelled
		default:
		}
		if status == StateCancelled {
			break
		}
		elapsed := cfg.Clock.Now().Sub(start)
		if elapsed >= cfg.TimeBudget {
			break
		}
		result.Iterations++

		mv, ok := s.propose(p, rng)
		if !ok {
			continue
		}
		next := scorer.Score()
		delta := s.energy(next) - s.energy(current)
		if next.Compare(current) >= 0 || rng.Float64() < math.Exp(float64(delta)/s.temperature(elapsed)) {
			current = next
			result.Accepted++
			if current.Better(best) {
				best = current
				bestPlacements = p.snapshot()
				result.Improvements++
				if cfg.OnImprovement != nil {
					cfg.OnImprovement(Improvement{Iteration: result.Iterations, Elapsed: elapsed, Score: best})
				}
				if best.Perfect() {
					status = StateCompleted
				}
			}
			continue
		}
		s.undo(p, mv)
	}

	p.restore(bestPlacements)
	result.Score = best
	result.Status = status
	result.Elapsed = cfg.Clock.Now().Sub(start)
	s.state.Store(int32(status))

	cfg.Logger.Debug("solver finished",
		zap.Stringer("status", status),
		zap.Stringer("score", best),
		zap.Int64("iterations", result.Iterations),
		zap.Int64("accepted", result.Accepted),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// energy folds hard and soft into one number for the acceptance test. Balance only
// decides ties, so it is left out.
func (s *Solver) energy(score Score) int64 {
	return score.Hard*s.cfg.HardWeight + score.Soft
}

// temperature decays geometrically from the initial to the final temperature over
// the budget.
func (s *Solver) temperature(elapsed time.Duration) float64 {
	frac := float64(elapsed) / float64(s.cfg.TimeBudget)
	if frac > 1 {
		frac = 1
	}
	return s.cfg.InitialTemperature * math.Pow(s.cfg.FinalTemperature/s.cfg.InitialTemperature, frac)
}

// propose applies a random move to p. ok is false when the drawn move would change
// nothing, in which case p is untouched.
func (s *Solver) propose(p *Problem, rng *rand.Rand) (move, bool) {
	n := p.Len()
	o := rng.Intn(n)
	occ := p.occurrences[o]
	current := p.placements[o]
	roll := rng.Float64()

	switch {
	case roll < s.cfg.SwapProbability && n > 1:
		b := rng.Intn(n - 1)
		if b >= o {
			b++
		}
		if p.placements[b] == current {
			return move{}, false
		}
		if !p.swap(o, b) {
			return move{}, false
		}
		return move{kind: moveSwap, a: o, b: b}, true

	case roll < s.cfg.SwapProbability+s.cfg.ClassroomProbability && current.Placed():
		rooms := p.roomsFor[occ.Requirement]
		if len(rooms) == 0 {
			return move{}, false
		}
		room := rooms[rng.Intn(len(rooms))]
		if room == current.Room {
			return move{}, false
		}
		p.assign(o, Placement{Slot: current.Slot, Room: room})
		return move{kind: moveClassroom, a: o, prev: current}, true

	default:
		slots := p.slotsFor[occ.Requirement]
		if len(slots) == 0 {
			return move{}, false
		}
		next := Placement{Slot: slots[rng.Intn(len(slots))], Room: current.Room}
		if next.Room == Unassigned {
			if rooms := p.roomsFor[occ.Requirement]; len(rooms) > 0 {
				next.Room = rooms[rng.Intn(len(rooms))]
			}
		}
		if next == current {
			return move{}, false
		}
		p.assign(o, next)
		return move{kind: moveRelocate, a: o, prev: current}, true
	}
}

func (s *Solver) undo(p *Problem, mv move) {
	if mv.kind == moveSwap {
		p.swap(mv.a, mv.b)
		return
	}
	p.assign(mv.a, mv.prev)
}
