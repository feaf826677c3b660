package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// discussionSnapshot is written while a discussion timestamp tooltip is shown
const discussionSnapshot = "discussion_date.log"

// Discussions reads every comment with its author, text and tooltip timestamp. Inline
// images are rewritten to unique file names stamped with the comment date and retrieved.
// Retrieval failures are joined and returned with the complete entries.
func (e *Extractor) Discussions(ctx context.Context) ([]models.DiscussionEntry, error) {
	sel := e.selectors.Discussion

	dialog, err := e.dialog(ctx)
	if err != nil {
		return nil, err
	}

	comments, err := e.findAll(ctx, dialog, sel.Comment)
	if err != nil {
		return nil, err
	}

	entries := make([]models.DiscussionEntry, 0, len(comments))
	var retrievalErrs []error

	for i, comment := range comments {
		content, _, err := e.readText(ctx, comment, sel.Content)
		if err != nil {
			return nil, err
		}
		images, err := e.findAll(ctx, comment, sel.Image)
		if err != nil {
			return nil, err
		}
		trigger, err := e.find(ctx, comment, sel.Timestamp)
		if err != nil {
			return nil, err
		}

		label := fmt.Sprintf("discussion comment %d", i)
		tooltip, err := e.hover.Resolve(ctx, HoverRequest{
			Trigger: trigger,
			Reveal:  sel.Tooltip,
			Label:   label,
			BeforeLeave: func(ctx context.Context) {
				e.snapshot(ctx, discussionSnapshot)
			},
		})
		if err != nil {
			return nil, err
		}

		display, stamp, err := e.resolveDate(tooltip, label)
		if err != nil {
			return nil, err
		}

		author, _, err := e.readText(ctx, comment, sel.Author)
		if err != nil {
			return nil, err
		}

		entry := models.DiscussionEntry{
			Author:      author,
			Content:     content,
			Timestamp:   display,
			Attachments: []models.AttachmentRef{},
		}

		for _, image := range images {
			ref, ok, err := e.rewriteImage(ctx, image, stamp, label)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if err := e.retrieve(ctx, ref, interfaces.SourceDiscussion); err != nil {
				retrievalErrs = append(retrievalErrs, err)
			}
			entry.Attachments = append(entry.Attachments, ref)
		}

		entries = append(entries, entry)
	}

	e.logger.Debug().Int("comments", len(entries)).Msg("Discussion extracted")
	return entries, errors.Join(retrievalErrs...)
}

// rewriteImage returns false for images that are not hosted attachments
func (e *Extractor) rewriteImage(ctx context.Context, image interfaces.Element, stamp string, label string) (models.AttachmentRef, bool, error) {
	src, err := e.requireAttribute(ctx, image, "src", label+" image")
	if err != nil {
		return models.AttachmentRef{}, false, err
	}

	rewritten, filename, err := RewriteResourceURL(src, stamp, e.config.FileNameParam)
	if errors.Is(err, ErrMissingFileName) {
		e.logger.Warn().Str("src", src).Str("label", label).Msg("Skipping image without file name")
		return models.AttachmentRef{}, false, nil
	}
	if err != nil {
		return models.AttachmentRef{}, false, err
	}

	return models.AttachmentRef{URL: rewritten, Filename: filename}, true, nil
}
