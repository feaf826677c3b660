// -----------------------------------------------------------------------
// Attachment Retrieval - throttled downloads recorded in a per-run ledger
// -----------------------------------------------------------------------

package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// Service downloads rewritten attachment URLs by navigating the session to them.
// Files already recorded for the run are skipped.
type Service struct {
	session interfaces.DocumentSession
	ledger  interfaces.DownloadStorage
	limiter *rate.Limiter
	runID   string
	logger  arbor.ILogger
	now     func() time.Time
}

// NewService creates a retriever for one run. ledger may be nil to disable duplicate tracking.
func NewService(session interfaces.DocumentSession, ledger interfaces.DownloadStorage, config common.RetrievalConfig, runID string, logger arbor.ILogger) *Service {
	limit := rate.Inf
	if gap := config.RateLimit.Std(); gap > 0 {
		limit = rate.Every(gap)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}

	return &Service{
		session: session,
		ledger:  ledger,
		limiter: rate.NewLimiter(limit, burst),
		runID:   runID,
		logger:  logger,
		now:     time.Now,
	}
}

// Retrieve navigates to ref.URL unless the run already retrieved ref.Filename
func (s *Service) Retrieve(ctx context.Context, ref models.AttachmentRef, source string) error {
	if s.ledger != nil {
		done, err := s.ledger.HasDownload(ctx, s.runID, ref.Filename)
		if err != nil {
			return err
		}
		if done {
			s.logger.Debug().
				Str("filename", ref.Filename).
				Str("source", source).
				Msg("Already retrieved in this run, skipping")
			return nil
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("retrieval throttle: %w", err)
	}

	if err := s.session.Navigate(ctx, ref.URL); err != nil {
		return fmt.Errorf("failed to retrieve %s: %w", ref.Filename, err)
	}

	s.logger.Info().
		Str("filename", ref.Filename).
		Str("source", source).
		Msg("Attachment retrieved")

	if s.ledger == nil {
		return nil
	}

	return s.ledger.SaveDownload(ctx, &models.DownloadRecord{
		RunID:       s.runID,
		Filename:    ref.Filename,
		URL:         ref.URL,
		Source:      source,
		RetrievedAt: s.now(),
	})
}

var _ interfaces.Retriever = (*Service)(nil)
