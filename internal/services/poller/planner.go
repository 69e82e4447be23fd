package poller

import (
	"math/rand"
	"time"

	"github.com/BearBump/FilmTrack/internal/models"
)

type Rand interface {
	Intn(n int) int
}

type PlannerConfig struct {
	DoneDelay time.Duration // default: 7 days

	ProcessingMinDelay time.Duration // default: 30 minutes
	ProcessingMaxDelay time.Duration // default: 120 minutes

	UnknownDelay time.Duration // default: 90 minutes
	ErrorDelay   time.Duration // default: 30 minutes
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		DoneDelay: 7 * 24 * time.Hour,

		ProcessingMinDelay: 30 * time.Minute,
		ProcessingMaxDelay: 120 * time.Minute,

		UnknownDelay: 90 * time.Minute,
		ErrorDelay:   30 * time.Minute,
	}
}

// Planner decides when an order is checked next, based on the state just fetched.
type Planner struct {
	cfg PlannerConfig
	r   Rand
}

func NewPlanner(cfg PlannerConfig, r Rand) *Planner {
	def := DefaultPlannerConfig()
	if cfg.DoneDelay <= 0 {
		cfg.DoneDelay = def.DoneDelay
	}
	if cfg.ProcessingMinDelay <= 0 {
		cfg.ProcessingMinDelay = def.ProcessingMinDelay
	}
	if cfg.ProcessingMaxDelay <= 0 {
		cfg.ProcessingMaxDelay = def.ProcessingMaxDelay
	}
	if cfg.ProcessingMaxDelay < cfg.ProcessingMinDelay {
		cfg.ProcessingMaxDelay = cfg.ProcessingMinDelay
	}
	if cfg.UnknownDelay <= 0 {
		cfg.UnknownDelay = def.UnknownDelay
	}
	if cfg.ErrorDelay <= 0 {
		cfg.ErrorDelay = def.ErrorDelay
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{cfg: cfg, r: r}
}

func (p *Planner) Config() PlannerConfig {
	return p.cfg
}

func (p *Planner) NextCheckDelay(state models.OrderState) time.Duration {
	switch state {
	case models.OrderStateDone:
		return p.cfg.DoneDelay
	case models.OrderStateProcessing:
		min := p.cfg.ProcessingMinDelay
		max := p.cfg.ProcessingMaxDelay
		if max == min {
			return min
		}
		secMin := int(min.Seconds())
		secMax := int(max.Seconds())
		if secMax < secMin {
			secMax = secMin
		}
		// spread checks so a batch added together does not come due together
		return time.Duration(secMin+p.r.Intn(secMax-secMin+1)) * time.Second
	case models.OrderStateError:
		return p.cfg.ErrorDelay
	default:
		return p.cfg.UnknownDelay
	}
}
