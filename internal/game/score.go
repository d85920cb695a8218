package game

import (
	"go.uber.org/zap"

	"github.com/vladimirvolkov/dribble/internal/logger"
)

// ScoreSink is notified after every counted make.
type ScoreSink interface {
	ScoreChanged(score, points int)
}

// Scoreboard counts makes. One pass through the goal sensor can fire several
// entries, so makes closer together than cooldown count once.
type Scoreboard struct {
	score     int
	increment int
	cooldown  float32
	lastMake  float32
	made      bool
	sink      ScoreSink
	log       *zap.Logger
}

// NewScoreboard: sink and log may be nil.
func NewScoreboard(increment int, cooldown float32, sink ScoreSink, log *zap.Logger) *Scoreboard {
	return &Scoreboard{
		increment: increment,
		cooldown:  cooldown,
		sink:      sink,
		log:       logger.OrNop(log),
	}
}

func (s *Scoreboard) Score() int { return s.score }

// GoalEntered registers a make at sim time at and reports whether it counted.
func (s *Scoreboard) GoalEntered(at float32) bool {
	if s.made && at-s.lastMake < s.cooldown {
		s.log.Debug("make ignored during cooldown",
			zap.Float32("at", at),
			zap.Float32("last", s.lastMake))
		return false
	}
	s.made = true
	s.lastMake = at
	s.score += s.increment
	s.log.Info("scored", zap.Int("points", s.increment), zap.Int("score", s.score))
	if s.sink != nil {
		s.sink.ScoreChanged(s.score, s.increment)
	}
	return true
}
