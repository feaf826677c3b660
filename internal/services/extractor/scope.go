package extractor

import (
	"context"
	"errors"
	"fmt"
)

// withView enters a transient view, runs fn and restores the previous view on every exit
// path. The restore runs with a context detached from cancellation; its error is joined
// onto fn's.
func (e *Extractor) withView(ctx context.Context, name string, enter, restore func(context.Context) error, fn func() error) (err error) {
	if err := enter(ctx); err != nil {
		return fmt.Errorf("failed to open %s view: %w", name, err)
	}

	defer func() {
		if rerr := restore(context.WithoutCancel(ctx)); rerr != nil {
			e.logger.Error().Err(rerr).Str("view", name).Msg("Failed to restore view")
			err = errors.Join(err, fmt.Errorf("failed to restore view after %s: %w", name, rerr))
		}
	}()

	return fn()
}

// withSecondaryContext runs fn and then closes every browsing context other than original
// and refocuses original, whether fn succeeded or not.
func (e *Extractor) withSecondaryContext(ctx context.Context, original string, fn func() error) (err error) {
	defer func() {
		if rerr := e.releaseContexts(context.WithoutCancel(ctx), original); rerr != nil {
			e.logger.Error().Err(rerr).Str("context_id", original).Msg("Failed to restore browsing context")
			err = errors.Join(err, rerr)
		}
	}()

	return fn()
}

func (e *Extractor) releaseContexts(ctx context.Context, original string) error {
	ids, err := e.session.Contexts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list browsing contexts: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if id == original {
			continue
		}
		if err := e.session.SwitchContext(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.session.CloseContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := e.session.SwitchContext(ctx, original); err != nil {
		errs = append(errs, fmt.Errorf("failed to refocus %s: %w", original, err))
	}

	return errors.Join(errs...)
}
