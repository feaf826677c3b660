package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// RelatedWork reads the related-work groups. Each item's last-updated date is only
// rendered in a hover tooltip and is resolved through the hover helper.
func (e *Extractor) RelatedWork(ctx context.Context) ([]models.RelatedWorkGroup, error) {
	sel := e.selectors.RelatedWork

	dialog, err := e.dialog(ctx)
	if err != nil {
		return nil, err
	}

	root, err := e.find(ctx, dialog, sel.Root)
	if err != nil {
		return nil, err
	}
	if root == nil {
		e.logger.Debug().Msg("No related work section rendered")
		return []models.RelatedWorkGroup{}, nil
	}

	showMore, err := e.find(ctx, root, sel.ShowMore)
	if err != nil {
		return nil, err
	}
	if showMore != nil {
		if err := e.session.Click(ctx, showMore); err != nil {
			return nil, fmt.Errorf("failed to expand related work: %w", err)
		}
	}

	groupElements, err := e.findAll(ctx, root, sel.Group)
	if err != nil {
		return nil, err
	}

	groups := make([]models.RelatedWorkGroup, 0, len(groupElements))
	for _, groupElement := range groupElements {
		title, _, err := e.readText(ctx, groupElement, sel.GroupTitle)
		if err != nil {
			return nil, err
		}
		group := models.RelatedWorkGroup{
			Type:  firstToken(title),
			Items: []models.RelatedWorkRef{},
		}

		items, err := e.findAll(ctx, groupElement, sel.Item)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			ref, err := e.readRelatedItem(ctx, item, group.Type)
			if err != nil {
				return nil, fmt.Errorf("related work group %q: %w", group.Type, err)
			}
			group.Items = append(group.Items, ref)
		}

		groups = append(groups, group)
	}

	e.logger.Debug().Int("groups", len(groups)).Msg("Related work extracted")
	return groups, nil
}

func (e *Extractor) readRelatedItem(ctx context.Context, item interfaces.Element, groupType string) (models.RelatedWorkRef, error) {
	sel := e.selectors.RelatedWork

	link, err := e.require(ctx, item, sel.ItemLink, "related work link")
	if err != nil {
		return models.RelatedWorkRef{}, err
	}
	href, err := e.requireAttribute(ctx, link, "href", "related work link")
	if err != nil {
		return models.RelatedWorkRef{}, err
	}
	text, err := e.session.Text(ctx, link)
	if err != nil {
		return models.RelatedWorkRef{}, err
	}

	id := lastURLSegment(href)
	title := strings.ReplaceAll(text, " ", "_")

	trigger, err := e.find(ctx, item, sel.HoverSpan)
	if err != nil {
		return models.RelatedWorkRef{}, err
	}

	label := "related work " + id
	tooltip, err := e.hover.Resolve(ctx, HoverRequest{
		Trigger: trigger,
		Reveal:  sel.Tooltip,
		Label:   label,
	})
	if err != nil {
		return models.RelatedWorkRef{}, err
	}

	display, stamp, err := e.resolveDate(tooltip, label)
	if err != nil {
		return models.RelatedWorkRef{}, err
	}

	return models.RelatedWorkRef{
		FilenameSource: fmt.Sprintf("%s_%s", id, title),
		LinkTarget:     fmt.Sprintf("%s_%s_update_%s_%s", id, title, stamp, groupType),
		UpdatedAt:      display,
	}, nil
}

// firstToken returns the first whitespace-separated token of s
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
