package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quarry/internal/interfaces"
)

// HoverPolicy is the retry budget for content revealed by hovering
type HoverPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// SleepFunc pauses between attempts. Injected so tests run without real delay.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext waits for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// HoverRequest describes one hover-then-read cycle
type HoverRequest struct {
	Trigger interfaces.Element // Element receiving the pointer events
	Scope   interfaces.Element // Scope for Reveal, nil for the document root
	Reveal  string             // Query for the revealed content
	Label   string             // Names the value in log output

	// BeforeLeave runs once after the last attempt while revealed content is still shown
	BeforeLeave func(ctx context.Context)
}

// HoverResolver repeats pointer-enter and read until text appears or the budget is spent
type HoverResolver struct {
	session interfaces.DocumentSession
	policy  HoverPolicy
	sleep   SleepFunc
	logger  arbor.ILogger
}

// NewHoverResolver creates a resolver; a nil sleep uses SleepContext
func NewHoverResolver(session interfaces.DocumentSession, policy HoverPolicy, sleep SleepFunc, logger arbor.ILogger) *HoverResolver {
	if sleep == nil {
		sleep = SleepContext
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &HoverResolver{
		session: session,
		policy:  policy,
		sleep:   sleep,
		logger:  logger,
	}
}

// Resolve returns the revealed text. Exhausting the budget is a soft failure: the last
// read (possibly empty) is returned with a nil error. Only session failures are errors.
// A pointer-leave is dispatched on every exit to restore the hover state.
func (r *HoverResolver) Resolve(ctx context.Context, req HoverRequest) (string, error) {
	if req.Trigger == nil {
		r.logger.Warn().Str("label", req.Label).Msg("Hover trigger not rendered, continuing with empty value")
		return "", nil
	}

	defer func() {
		if err := r.session.DispatchPointer(context.WithoutCancel(ctx), req.Trigger, interfaces.PointerLeave); err != nil {
			r.logger.Warn().Err(err).Str("label", req.Label).Msg("Failed to dispatch pointer leave")
		}
	}()

	var text string
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := r.session.DispatchPointer(ctx, req.Trigger, interfaces.PointerEnter); err != nil {
			return "", fmt.Errorf("hover %s: %w", req.Label, err)
		}

		revealed, err := r.session.Find(ctx, req.Scope, req.Reveal)
		if err != nil {
			return "", fmt.Errorf("hover %s: %w", req.Label, err)
		}
		if revealed != nil {
			if text, err = r.session.Text(ctx, revealed); err != nil {
				return "", fmt.Errorf("hover %s: %w", req.Label, err)
			}
		}

		if text != "" {
			r.logger.Debug().
				Str("label", req.Label).
				Int("attempt", attempt).
				Str("text", text).
				Msg("Hover content revealed")
			break
		}

		r.logger.Info().
			Str("label", req.Label).
			Msgf("Retrying hover ... %d/%d", attempt, r.policy.MaxAttempts)

		if attempt < r.policy.MaxAttempts {
			if err := r.sleep(ctx, r.policy.Backoff); err != nil {
				return text, err
			}
		}
	}

	if req.BeforeLeave != nil {
		req.BeforeLeave(ctx)
	}

	if text == "" {
		r.logger.Warn().
			Str("label", req.Label).
			Int("max_attempts", r.policy.MaxAttempts).
			Msg("Hover content never revealed, continuing with empty value")
	}

	return text, nil
}
