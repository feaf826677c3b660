package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// Attachments switches to the attachments tab, rewrites every listed file to a unique
// name stamped with its attached date, retrieves it and switches back to the details tab.
// Returns nil when the item shows no attachment counter. The details tab is restored on
// every exit path, including failed retrievals.
func (e *Extractor) Attachments(ctx context.Context) ([]models.AttachmentRef, error) {
	sel := e.selectors.Attachments

	dialog, err := e.dialog(ctx)
	if err != nil {
		return nil, err
	}

	count, ok, err := e.readLastText(ctx, dialog, sel.Count)
	if err != nil {
		return nil, err
	}
	if !ok || count == "" || count == "0" {
		e.logger.Debug().Msg("No attachments listed")
		return nil, nil
	}

	var refs []models.AttachmentRef
	var retrievalErrs []error

	err = e.withView(ctx, "attachments",
		func(ctx context.Context) error {
			return e.clickLast(ctx, dialog, sel.Tab, "attachments tab")
		},
		func(ctx context.Context) error {
			return e.clickLast(ctx, dialog, sel.DetailsTab, "details tab")
		},
		func() error {
			rows, err := e.findAll(ctx, dialog, sel.Row)
			if err != nil {
				return err
			}

			for i, row := range rows {
				ref, err := e.readAttachmentRow(ctx, row)
				if err != nil {
					return fmt.Errorf("attachment row %d: %w", i, err)
				}
				refs = append(refs, ref)
			}

			for _, ref := range refs {
				if err := e.retrieve(ctx, ref, interfaces.SourceAttachments); err != nil {
					retrievalErrs = append(retrievalErrs, err)
				}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("counter", count).
		Int("attachments", len(refs)).
		Msg("Attachments extracted")

	return refs, errors.Join(retrievalErrs...)
}

func (e *Extractor) readAttachmentRow(ctx context.Context, row interfaces.Element) (models.AttachmentRef, error) {
	sel := e.selectors.Attachments

	link, err := e.require(ctx, row, sel.Link, "attachment link")
	if err != nil {
		return models.AttachmentRef{}, err
	}
	href, err := e.requireAttribute(ctx, link, "href", "attachment link")
	if err != nil {
		return models.AttachmentRef{}, err
	}

	dateCell, err := e.require(ctx, row, sel.DateCell, "attachment date")
	if err != nil {
		return models.AttachmentRef{}, err
	}
	dateText, err := e.session.Text(ctx, dateCell)
	if err != nil {
		return models.AttachmentRef{}, err
	}
	attached, err := e.dates.ParseAttached(dateText)
	if err != nil {
		return models.AttachmentRef{}, err
	}

	rewritten, filename, err := RewriteResourceURL(href, e.dates.Stamp(attached), e.config.FileNameParam)
	if err != nil {
		return models.AttachmentRef{}, err
	}

	return models.AttachmentRef{URL: rewritten, Filename: filename}, nil
}

// clickLast clicks the last match; tab strips render once per open form
func (e *Extractor) clickLast(ctx context.Context, scope interfaces.Element, query string, what string) error {
	el, err := e.findLast(ctx, scope, query)
	if err != nil {
		return err
	}
	if el == nil {
		return fmt.Errorf("%w: %s (%s)", ErrElementNotFound, what, query)
	}
	return e.session.Click(ctx, el)
}

func (e *Extractor) readLastText(ctx context.Context, scope interfaces.Element, query string) (string, bool, error) {
	el, err := e.findLast(ctx, scope, query)
	if err != nil || el == nil {
		return "", false, err
	}
	text, err := e.session.Text(ctx, el)
	if err != nil {
		return "", false, err
	}
	return strings.Trim(strings.TrimSpace(text), "()"), true, nil
}
