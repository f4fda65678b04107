// Package flood scores message cadence per actor with a decaying penalty.
// State is process-lifetime only; a restart resets every actor to zero.
package flood

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/chatkeeper/keeper/internal/domain/similarity"
	"github.com/chatkeeper/keeper/pkg/metrics"
)

// Verdict classifies one scored event.
type Verdict int

const (
	// VerdictOK means the actor is under the warn threshold.
	VerdictOK Verdict = iota
	// VerdictWarn means the score crossed the warn threshold.
	VerdictWarn
	// VerdictMute means the score hit the ceiling. The score is clamped
	// back to the warn threshold so the actor is not muted again on the
	// very next message.
	VerdictMute
)

// String returns the verdict label used in logs and metrics.
func (v Verdict) String() string {
	switch v {
	case VerdictWarn:
		return "warn"
	case VerdictMute:
		return "mute"
	default:
		return "ok"
	}
}

// state is the per-actor tracking record.
type state struct {
	score    float64
	lastText string
	lastTime time.Time
}

// Scorer holds the per-actor flood registry. Safe for concurrent use:
// per-actor updates go through Compute on the sharded map.
type Scorer struct {
	states *xsync.MapOf[int64, *state]

	decayRate  float64 // points shed per second of silence
	maxScore   float64 // mute ceiling
	warnScore  float64 // warn threshold and post-mute clamp
	similarity float64 // ratio above which texts count as near-duplicates

	baseWeight     float64
	shortMult      float64
	duplicateMult  float64
	similarMult    float64
	repetitionMult float64

	shortLen    int // messages shorter than this are weighted up
	repeatLen   int // length above which low diversity is penalized
	minDistinct int // distinct-rune floor for the repetition penalty

	now func() time.Time
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithDecayRate sets the points shed per second of silence.
func WithDecayRate(r float64) Option {
	return func(s *Scorer) {
		if r > 0 {
			s.decayRate = r
		}
	}
}

// WithThresholds sets the warn threshold and the mute ceiling.
func WithThresholds(warn, max float64) Option {
	return func(s *Scorer) {
		if warn > 0 && max > warn {
			s.warnScore = warn
			s.maxScore = max
		}
	}
}

// WithSimilarityThreshold sets the near-duplicate ratio cutoff.
func WithSimilarityThreshold(t float64) Option {
	return func(s *Scorer) {
		if t > 0 && t < 1 {
			s.similarity = t
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Scorer with the default tuning.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		states:         xsync.NewMapOf[int64, *state](),
		decayRate:      0.5,
		maxScore:       10.0,
		warnScore:      6.0,
		similarity:     0.75,
		baseWeight:     1.0,
		shortMult:      1.5,
		duplicateMult:  4.0,
		similarMult:    2.0,
		repetitionMult: 2.0,
		shortLen:       5,
		repeatLen:      8,
		minDistinct:    4,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Observe scores one message event for an actor and returns the verdict.
// Decay is applied first, then the weighted penalty for this message.
func (s *Scorer) Observe(actorID int64, text string) Verdict {
	now := s.now()
	norm := normalize(text)

	var verdict Verdict
	s.states.Compute(actorID, func(old *state, loaded bool) (*state, bool) {
		st := &state{}
		if loaded {
			*st = *old
			elapsed := now.Sub(st.lastTime).Seconds()
			st.score -= elapsed * s.decayRate
			if st.score < 0 {
				st.score = 0
			}
		}

		st.score += s.weight(norm, st.lastText)
		st.lastText = norm
		st.lastTime = now

		switch {
		case st.score >= s.maxScore:
			st.score = s.warnScore
			verdict = VerdictMute
		case st.score >= s.warnScore:
			verdict = VerdictWarn
		default:
			verdict = VerdictOK
		}
		return st, false
	})

	metrics.UpdateFloodTracked(s.states.Size())
	return verdict
}

// weight computes the penalty for one message against the previous one.
func (s *Scorer) weight(norm, last string) float64 {
	w := s.baseWeight

	length := utf8.RuneCountInString(norm)
	if length < s.shortLen {
		w *= s.shortMult
	}

	if last != "" {
		if norm == last {
			w *= s.duplicateMult
		} else if similarity.Ratio(norm, last) > s.similarity {
			w *= s.similarMult
		}
	}

	if length > s.repeatLen && distinctRunes(norm) < s.minDistinct {
		w *= s.repetitionMult
	}
	return w
}

// Score returns the actor's current decayed score without mutating state.
func (s *Scorer) Score(actorID int64) float64 {
	st, ok := s.states.Load(actorID)
	if !ok {
		return 0
	}
	score := st.score - s.now().Sub(st.lastTime).Seconds()*s.decayRate
	if score < 0 {
		return 0
	}
	return score
}

// Forget drops the actor's flood state.
func (s *Scorer) Forget(actorID int64) {
	s.states.Delete(actorID)
	metrics.UpdateFloodTracked(s.states.Size())
}

// Tracked returns the number of actors currently carrying flood state.
func (s *Scorer) Tracked() int {
	return s.states.Size()
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func distinctRunes(s string) int {
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}
