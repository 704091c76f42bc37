package shutdown

import (
	"context"
	"errors"
	"fmt"

	"controller-go/internal/logger"
)

// Step is one stage of teardown.
type Step struct {
	Name string
	Stop func(ctx context.Context) error
}

// Teardown stops its steps strictly in the order given. A failing step is
// logged and recorded but does not skip the steps after it.
type Teardown struct {
	steps []Step
	log   *logger.Logger
}

func NewTeardown(log *logger.Logger, steps ...Step) *Teardown {
	return &Teardown{steps: steps, log: log}
}

func (t *Teardown) Run(ctx context.Context) error {
	var errs []error
	for _, step := range t.steps {
		if step.Stop == nil {
			continue
		}
		if err := step.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", step.Name, err))
			if t.log != nil {
				t.log.Error("stop failed", map[string]any{"step": step.Name, "err": err.Error()})
			}
			continue
		}
		if t.log != nil {
			t.log.Info(step.Name+" stopped", nil)
		}
	}
	return errors.Join(errs...)
}
