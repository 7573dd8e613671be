package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/command"
)

// Bootstrap creates the first account of a backend that has none, from a
// Login or ImportAccount command. Init only succeeds once an account
// exists, so a front-end runs this before starting the engine. The new
// account is removed again when setup fails.
func Bootstrap(ctx context.Context, b backend.Backend, cmd command.Command) (uint32, error) {
	var setup func(id uint32) error
	switch c := cmd.(type) {
	case command.Login:
		setup = func(id uint32) error { return b.Login(ctx, id, c.Email, c.Password) }
	case command.ImportAccount:
		setup = func(id uint32) error { return b.Import(ctx, id, c.Path) }
	default:
		return 0, fmt.Errorf("bootstrap: unsupported command %T", cmd)
	}

	id, err := b.AddAccount(ctx)
	if err != nil {
		return 0, fmt.Errorf("add account: %w", err)
	}
	if err := setup(id); err != nil {
		if rmErr := b.RemoveAccount(ctx, id); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("remove account %d: %w", id, rmErr))
		}
		return 0, err
	}
	return id, nil
}
