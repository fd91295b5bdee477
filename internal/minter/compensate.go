package minter

import (
	"context"
	"errors"
	"fmt"
)

type undoStep struct {
	name string
	fn   func(context.Context) error
}

// compensator records the inverse of every completed custody or approval step so a
// failed mint can be unwound in reverse order.
type compensator struct {
	steps []undoStep
}

func (c *compensator) push(name string, fn func(context.Context) error) {
	c.steps = append(c.steps, undoStep{name: name, fn: fn})
}

func (c *compensator) len() int {
	return len(c.steps)
}

// run executes every recorded step, newest first, and keeps going past failures.
func (c *compensator) run(ctx context.Context) error {
	var errs []error
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	c.steps = nil
	return errors.Join(errs...)
}
