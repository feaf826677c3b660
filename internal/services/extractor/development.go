package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// Development opens each linked commit or pull request, which the page renders in a new
// window, and reads its id, title and changed files. The secondary window is closed and
// the original refocused after every link. A window that never opens fails with
// ErrContextTimeout and no partial list is returned.
func (e *Extractor) Development(ctx context.Context) ([]models.DevelopmentArtifact, error) {
	sel := e.selectors.Development

	dialog, err := e.dialog(ctx)
	if err != nil {
		return nil, err
	}

	links, err := e.findAll(ctx, dialog, sel.Link)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []models.DevelopmentArtifact{}, nil
	}

	// Resolve every href before the first click; handles do not survive window switches
	hrefs := make([]string, len(links))
	for i, link := range links {
		href, _, err := e.session.Attribute(ctx, link, "href")
		if err != nil {
			return nil, err
		}
		hrefs[i] = href
	}

	original := e.session.CurrentContext()
	artifacts := make([]models.DevelopmentArtifact, 0, len(links))

	for i := range links {
		// Relocate after each round trip so the handle belongs to the focused context
		current, err := e.findAll(ctx, dialog, sel.Link)
		if err != nil {
			return nil, err
		}
		if i >= len(current) {
			return nil, fmt.Errorf("%w: development link %d (%s)", ErrElementNotFound, i, hrefs[i])
		}

		var artifact models.DevelopmentArtifact
		err = e.withSecondaryContext(ctx, original, func() error {
			var err error
			artifact, err = e.readDevelopmentLink(ctx, current[i], i, hrefs[i])
			return err
		})
		if err != nil {
			return nil, err
		}

		artifacts = append(artifacts, artifact)
	}

	e.logger.Debug().Int("artifacts", len(artifacts)).Msg("Development extracted")
	return artifacts, nil
}

func (e *Extractor) readDevelopmentLink(ctx context.Context, link interfaces.Element, index int, href string) (models.DevelopmentArtifact, error) {
	var artifact models.DevelopmentArtifact

	if err := e.session.Click(ctx, link); err != nil {
		return artifact, fmt.Errorf("failed to open development link %d: %w", index, err)
	}

	if err := e.session.WaitForContexts(ctx, 2, e.config.ContextTimeout.Std()); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return artifact, fmt.Errorf("%w: link %d (%s) after %s: %w",
				ErrContextTimeout, index, href, e.config.ContextTimeout.Std(), err)
		}
		return artifact, err
	}

	ids, err := e.session.Contexts(ctx)
	if err != nil {
		return artifact, err
	}
	if err := e.session.SwitchContext(ctx, ids[len(ids)-1]); err != nil {
		return artifact, err
	}

	location, err := e.session.Location(ctx)
	if err != nil {
		return artifact, err
	}
	artifact.ID = lastURLSegment(location)
	if artifact.Title, err = e.session.Title(ctx); err != nil {
		return artifact, err
	}

	artifact.ChangedFiles, err = e.readChangedFiles(ctx)
	if err != nil {
		return artifact, fmt.Errorf("development %s: %w", artifact.ID, err)
	}

	e.logger.Debug().
		Str("id", artifact.ID).
		Str("title", artifact.Title).
		Int("changed_files", len(artifact.ChangedFiles)).
		Msg("Development artifact read")

	return artifact, nil
}

func (e *Extractor) readChangedFiles(ctx context.Context) ([]models.ChangedFile, error) {
	sel := e.selectors.Development

	rows, err := e.findAll(ctx, nil, sel.ChangedFile)
	if err != nil {
		return nil, err
	}

	files := make([]models.ChangedFile, 0, len(rows))
	for _, row := range rows {
		if err := e.session.Click(ctx, row); err != nil {
			return nil, fmt.Errorf("failed to open changed file: %w", err)
		}

		var file models.ChangedFile
		if file.FileName, _, err = e.readText(ctx, nil, sel.Heading); err != nil {
			return nil, err
		}
		if file.Path, _, err = e.readText(ctx, nil, sel.Path); err != nil {
			return nil, err
		}
		if file.Content, _, err = e.readText(ctx, nil, sel.Content); err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, nil
}
