package extractor

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// History expands every collapsed history group, then opens each item's details panel
// and reads the entry. An item without a rendered history section yields an empty list.
func (e *Extractor) History(ctx context.Context) ([]models.HistoryEntry, error) {
	sel := e.selectors.History

	dialog, err := e.dialog(ctx)
	if err != nil {
		return nil, err
	}

	container, err := e.find(ctx, dialog, sel.Container)
	if err != nil {
		return nil, err
	}
	if container == nil {
		e.logger.Debug().Msg("No history section rendered")
		return []models.HistoryEntry{}, nil
	}

	if err := e.expandHistory(ctx, container); err != nil {
		return nil, err
	}

	items, err := e.findAll(ctx, container, sel.Item)
	if err != nil {
		return nil, err
	}

	entries := make([]models.HistoryEntry, 0, len(items))
	for i, item := range items {
		if err := e.session.Click(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to open history item %d: %w", i, err)
		}

		panel, err := e.require(ctx, container, sel.DetailsPanel, "history details panel")
		if err != nil {
			return nil, fmt.Errorf("history item %d: %w", i, err)
		}

		entry, err := e.readHistoryEntry(ctx, panel)
		if err != nil {
			return nil, fmt.Errorf("history item %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	e.logger.Debug().Int("entries", len(entries)).Msg("History extracted")
	return entries, nil
}

// expandHistory clicks collapsed group headers until none remain. Expanding a group can
// render further collapsed groups, so the query is repeated up to MaxExpandRounds times.
func (e *Extractor) expandHistory(ctx context.Context, container interfaces.Element) error {
	for round := 0; round < e.config.MaxExpandRounds; round++ {
		collapsed, err := e.findAll(ctx, container, e.selectors.History.CollapsedGroup)
		if err != nil {
			return err
		}
		if len(collapsed) == 0 {
			return nil
		}
		for _, group := range collapsed {
			if err := e.session.Click(ctx, group); err != nil {
				return fmt.Errorf("failed to expand history group: %w", err)
			}
		}
	}

	e.logger.Warn().
		Int("rounds", e.config.MaxExpandRounds).
		Msg("History groups still collapsed, continuing with rendered items")
	return nil
}

func (e *Extractor) readHistoryEntry(ctx context.Context, panel interfaces.Element) (models.HistoryEntry, error) {
	sel := e.selectors.History
	entry := models.HistoryEntry{
		Fields: []models.FieldChange{},
		Links:  []models.LinkRef{},
	}

	var err error
	if entry.Actor, _, err = e.readText(ctx, panel, sel.Actor); err != nil {
		return entry, err
	}
	if entry.Timestamp, _, err = e.readText(ctx, panel, sel.Date); err != nil {
		return entry, err
	}
	if entry.Title, _, err = e.readText(ctx, panel, sel.Title); err != nil {
		return entry, err
	}

	plain, err := e.readFieldChanges(ctx, panel, sel.FieldRow, sel.FieldName, sel.FieldValue,
		sel.FieldOldValue, sel.FieldNewValue, models.FieldSourcePlain)
	if err != nil {
		return entry, err
	}
	entry.Fields = append(entry.Fields, plain...)

	// Rich-text rows carry the name as their own text
	rich, err := e.readFieldChanges(ctx, panel, sel.RichFieldRow, "", sel.RichFieldValue,
		sel.RichFieldOldValue, sel.RichFieldNewValue, models.FieldSourceRichText)
	if err != nil {
		return entry, err
	}
	entry.Fields = append(entry.Fields, rich...)

	comment, ok, err := e.readText(ctx, panel, sel.Comment)
	if err != nil {
		return entry, err
	}
	if ok && comment != "" {
		entry.Comment = &comment
	}

	links, err := e.findAll(ctx, panel, sel.Link)
	if err != nil {
		return entry, err
	}
	for _, link := range links {
		ref, err := e.readLinkRef(ctx, link)
		if err != nil {
			return entry, err
		}
		entry.Links = append(entry.Links, ref)
	}

	return entry, nil
}

func (e *Extractor) readFieldChanges(ctx context.Context, panel interfaces.Element,
	rowQuery, nameQuery, valueQuery, oldQuery, newQuery string, source models.FieldSource) ([]models.FieldChange, error) {

	rows, err := e.findAll(ctx, panel, rowQuery)
	if err != nil {
		return nil, err
	}

	changes := make([]models.FieldChange, 0, len(rows))
	for _, row := range rows {
		var name string
		if nameQuery == "" {
			name, err = e.session.Text(ctx, row)
		} else {
			name, _, err = e.readText(ctx, row, nameQuery)
		}
		if err != nil {
			return nil, err
		}

		change := models.FieldChange{Name: name, Source: source}

		value, err := e.find(ctx, row, valueQuery)
		if err != nil {
			return nil, err
		}
		if value != nil {
			if change.OldValue, err = e.readOptional(ctx, value, oldQuery); err != nil {
				return nil, err
			}
			if change.NewValue, err = e.readOptional(ctx, value, newQuery); err != nil {
				return nil, err
			}
		}

		changes = append(changes, change)
	}

	return changes, nil
}

func (e *Extractor) readLinkRef(ctx context.Context, link interfaces.Element) (models.LinkRef, error) {
	sel := e.selectors.History
	var ref models.LinkRef
	var err error

	if ref.Type, _, err = e.readText(ctx, link, sel.LinkType); err != nil {
		return ref, err
	}
	if ref.Title, _, err = e.readText(ctx, link, sel.LinkTitle); err != nil {
		return ref, err
	}

	anchor, err := e.find(ctx, link, sel.LinkAnchor)
	if err != nil || anchor == nil {
		return ref, err
	}
	href, ok, err := e.session.Attribute(ctx, anchor, "href")
	if err != nil || !ok {
		return ref, err
	}
	target := href
	if u, perr := url.Parse(href); perr == nil && u.Path != "" {
		target = u.Path
	}
	ref.TargetPath = &target

	return ref, nil
}
