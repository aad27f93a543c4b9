package main

import (
	scrapehttp "github.com/fwojciec/scrapejob/http"
)

// Run executes the serve command. It blocks until the context is done.
func (c *ServeCmd) Run(deps *Dependencies) error {
	s := scrapehttp.NewServer()
	s.Addr = c.Addr
	s.TrustProxy = c.TrustProxy
	s.JobService = deps.Jobs
	s.Limiter = deps.Limiter
	if deps.Logger != nil {
		s.Logger = deps.Logger
	}
	if deps.Metrics != nil {
		s.MetricsHandler = deps.Metrics.Handler()
		s.Middleware = deps.Metrics.Middleware
	}

	if err := s.Open(); err != nil {
		return err
	}
	s.Logger.Info("listening", "url", s.URL())

	<-deps.Ctx.Done()
	return s.Close()
}
