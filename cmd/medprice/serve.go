package main

import (
	"fmt"

	mphttp "github.com/fwojciec/medprice/http"
)

// Run executes the serve command. It blocks until the context is canceled.
func (c *ServeCmd) Run(deps *Dependencies) error {
	s := mphttp.NewServer(deps.Search, deps.Jobs, deps.Runner)
	s.Logger = deps.Logger

	deps.Logger.Info("listening", "addr", c.Addr)
	if err := s.ListenAndServe(deps.Ctx, c.Addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
