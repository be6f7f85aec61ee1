// Package app wires the planner from configuration: night construction,
// target loading, the reschedule controller and the long-running service.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/nightplan/config"
	"github.com/kilianp07/nightplan/core/ephemeris"
	"github.com/kilianp07/nightplan/core/model"
	"github.com/kilianp07/nightplan/core/night"
	"github.com/kilianp07/nightplan/core/scheduler"
	"github.com/kilianp07/nightplan/core/session"
	"github.com/kilianp07/nightplan/core/targetlist"
	"github.com/kilianp07/nightplan/core/visibility"
	"github.com/kilianp07/nightplan/infra/logger"
)

// Planner holds what every command needs to plan a night.
type Planner struct {
	Config   *config.Config
	Provider ephemeris.Provider
	Profile  *model.TelescopeProfile
	Engine   *visibility.Engine
	log      logger.Logger
}

// NewPlanner resolves the telescope and builds the visibility engine. A nil
// provider selects the meeus ephemeris.
func NewPlanner(cfg *config.Config, prov ephemeris.Provider) (*Planner, error) {
	profile, err := cfg.Telescope.Resolve()
	if err != nil {
		return nil, fmt.Errorf("telescope: %w", err)
	}
	if prov == nil {
		prov = ephemeris.NewMeeus()
	}
	log := logger.New("planner")
	return &Planner{
		Config:   cfg,
		Provider: prov,
		Profile:  profile,
		Engine:   visibility.NewEngine(prov, profile, visibility.NewCache(), logger.New("visibility")),
		log:      log,
	}, nil
}

// BuildNight computes the night beginning on the evening of date.
func (p *Planner) BuildNight(ctx context.Context, date time.Time) (*model.Night, error) {
	n, err := night.Build(ctx, p.Provider, night.Params{
		Date:       date,
		Site:       p.Config.Site,
		Atmosphere: p.Config.Atmosphere,
		Mode:       p.Config.Night.WindowMode(),
		Samples:    p.Config.Night.Samples,
	})
	if err != nil {
		return nil, err
	}
	p.log.Infof("night %s at %s: window %s-%s UTC, %d samples", n.Date.Format("2006-01-02"), n.Site.Name,
		n.GlobalStart.Format("15:04"), n.GlobalEnd.Format("15:04"), n.Len())
	return n, nil
}

// ReadTargets parses the observing list at path and logs rejected lines.
func (p *Planner) ReadTargets(path string) (targetlist.Result, error) {
	if path == "" {
		return targetlist.Result{}, fmt.Errorf("no target list given")
	}
	res, err := targetlist.ParseFile(path)
	if err != nil {
		return res, err
	}
	for _, d := range res.Diagnostics {
		p.log.Warnf("%s line %d: %s", path, d.Line, d.Message)
	}
	p.log.Infof("read %d targets and %d offline periods from %s", len(res.Targets), len(res.Offline), path)
	return res, nil
}

// Scheduler returns a scheduler configured from the scheduler section.
func (p *Planner) Scheduler() *scheduler.Scheduler {
	return scheduler.New(p.Config.Scheduler, logger.New("scheduler"))
}

// NewController builds a session for n with the list read from path and
// wraps it in a controller using deps. Visibility and Scheduler are filled
// when unset.
func (p *Planner) NewController(n *model.Night, res targetlist.Result, deps session.Deps) (*session.Controller, error) {
	if deps.Visibility == nil {
		deps.Visibility = p.Engine
	}
	if deps.Scheduler == nil {
		deps.Scheduler = p.Scheduler()
	}
	if deps.Logger == nil {
		deps.Logger = logger.New("session")
	}
	s := session.New(n, p.Profile, res.Targets, res.Offline)
	return session.NewController(s, deps)
}
