// engine/cel.go
package engine

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// programCache compiles rule expressions once and reuses the resulting
// programs across evaluation runs. Rule predicates see the environment
// snapshot's attributes bound as the variable "env".
type programCache struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

func newProgramCache() (*programCache, error) {
	env, err := cel.NewEnv(
		cel.Variable("env", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &programCache{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

func (c *programCache) program(expression string) (cel.Program, error) {
	c.mu.RLock()
	prg, hit := c.programs[expression]
	c.mu.RUnlock()
	if hit {
		return prg, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double check after acquiring the write lock
	if prg, hit = c.programs[expression]; hit {
		return prg, nil
	}

	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}

	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build program: %w", err)
	}

	c.programs[expression] = prg
	return prg, nil
}
