package common

// SelectorsConfig holds the XPath structural queries used to locate each section of the
// work item detail view. Queries starting with "." are relative to their scope element.
type SelectorsConfig struct {
	Dialog      string `toml:"dialog" validate:"required"`
	Description string `toml:"description"`

	History     HistorySelectors     `toml:"history"`
	RelatedWork RelatedWorkSelectors `toml:"related_work"`
	Discussion  DiscussionSelectors  `toml:"discussion"`
	Attachments AttachmentSelectors  `toml:"attachments"`
	Development DevelopmentSelectors `toml:"development"`
}

type HistorySelectors struct {
	Container      string `toml:"container" validate:"required"`       // Relative to the dialog
	CollapsedGroup string `toml:"collapsed_group" validate:"required"` // Relative to the container
	Item           string `toml:"item" validate:"required"`
	DetailsPanel   string `toml:"details_panel" validate:"required"`
	Actor          string `toml:"actor"` // Remaining queries are relative to the details panel
	Date           string `toml:"date"`
	Title          string `toml:"title"`
	Comment        string `toml:"comment"`

	FieldRow      string `toml:"field_row"`
	FieldName     string `toml:"field_name"`
	FieldValue    string `toml:"field_value"` // Relative to the field row
	FieldOldValue string `toml:"field_old_value"`
	FieldNewValue string `toml:"field_new_value"`

	RichFieldRow      string `toml:"rich_field_row"`
	RichFieldValue    string `toml:"rich_field_value"`
	RichFieldOldValue string `toml:"rich_field_old_value"`
	RichFieldNewValue string `toml:"rich_field_new_value"`

	Link       string `toml:"link"`
	LinkType   string `toml:"link_type"`
	LinkAnchor string `toml:"link_anchor"`
	LinkTitle  string `toml:"link_title"`
}

type RelatedWorkSelectors struct {
	Root       string `toml:"root" validate:"required"`
	ShowMore   string `toml:"show_more"`
	Group      string `toml:"group" validate:"required"`
	GroupTitle string `toml:"group_title"`
	Item       string `toml:"item"`
	ItemLink   string `toml:"item_link"`
	HoverSpan  string `toml:"hover_span"`
	Tooltip    string `toml:"tooltip"` // Document-global: tooltips render in a layer outside the item
}

type DiscussionSelectors struct {
	Comment   string `toml:"comment" validate:"required"`
	Author    string `toml:"author"`
	Content   string `toml:"content"`
	Image     string `toml:"image"`
	Timestamp string `toml:"timestamp"`
	Tooltip   string `toml:"tooltip"`
}

type AttachmentSelectors struct {
	Count      string `toml:"count" validate:"required"`
	Tab        string `toml:"tab" validate:"required"`
	DetailsTab string `toml:"details_tab" validate:"required"`
	Row        string `toml:"row"`
	Link       string `toml:"link"`
	DateCell   string `toml:"date_cell"`
}

type DevelopmentSelectors struct {
	Link        string `toml:"link" validate:"required"`
	ChangedFile string `toml:"changed_file"` // Remaining queries run in the secondary window
	Heading     string `toml:"heading"`
	Path        string `toml:"path"`
	Content     string `toml:"content"`
}

// DefaultSelectors returns the queries matching the rendered work item form
func DefaultSelectors() SelectorsConfig {
	return SelectorsConfig{
		Dialog:      "//div[@role='dialog'][last()]",
		Description: "(.//div[@aria-label='Description'])[last()]",
		History: HistorySelectors{
			Container:      "(.//div[contains(@class, 'workitem-history-control-container')])[last()]",
			CollapsedGroup: ".//div[contains(@class, 'history-group-header') and @aria-expanded='false']",
			Item:           ".//div[@class='history-item-summary-details']",
			DetailsPanel:   ".//div[@class='history-details-panel']",
			Actor:          ".//span[contains(@class, 'history-item-name-changed-by')]",
			Date:           ".//span[contains(@class, 'history-item-date')]",
			Title:          ".//div[contains(@class, 'history-item-summary-text')]",
			Comment:        ".//div[contains(@class, 'history-item-comment')]",

			FieldRow:      ".//div[@class='field-name']",
			FieldName:     ".//span",
			FieldValue:    "./following-sibling::div",
			FieldOldValue: ".//span[@class='field-old-value']",
			FieldNewValue: ".//span[@class='field-new-value']",

			RichFieldRow:      ".//div[@class='html-field-name history-section']",
			RichFieldValue:    "./parent::div/following-sibling::div",
			RichFieldOldValue: ".//span[@class='html-field-old-value']",
			RichFieldNewValue: ".//span[@class='html-field-new-value']",

			Link:       ".//div[@class='history-links']",
			LinkType:   ".//span[contains(@class, 'link-display-name')]//span",
			LinkAnchor: ".//span[contains(@class, 'link-text')]//a",
			LinkTitle:  ".//span[contains(@class, 'link-text')]//span",
		},
		RelatedWork: RelatedWorkSelectors{
			Root:       "(.//div[@class='links-control-container']/div[@class='la-main-component'])[last()]",
			ShowMore:   ".//div[@class='la-show-more']",
			Group:      "./div[@class='la-list']/div",
			GroupTitle: "./div[@class='la-group-title']",
			Item:       "./div[@class='la-item']",
			ItemLink:   "./div/div/div//a",
			HoverSpan:  "./div/div/div[@class='la-additional-data']/div[1]/div/span",
			Tooltip:    "//p[contains(text(), 'Updated by')]",
		},
		Discussion: DiscussionSelectors{
			Comment:   ".//div[contains(@class, 'initialized work-item-discussion-control')]//div[contains(@class, 'wit-comment-item')]",
			Author:    ".//span[@class='user-display-name']",
			Content:   ".//div[@class='comment-content']",
			Image:     ".//div[@class='comment-content']//img",
			Timestamp: ".//a[@class='comment-timestamp']",
			Tooltip:   "//p[contains(@class, 'ms-Tooltip-subtext')]",
		},
		Attachments: AttachmentSelectors{
			Count:      "(.//span[contains(@class, 'attachment-count')])[last()]",
			Tab:        ".//li[@aria-label='Attachments']",
			DetailsTab: ".//li[@aria-label='Details']",
			Row:        "(.//div[@class='grid-content-spacer'])[last()]/parent::div//div[@role='row']",
			Link:       ".//div[contains(@class, 'attachments-grid-file-name')]//a",
			DateCell:   "./div[3]",
		},
		Development: DevelopmentSelectors{
			Link:        ".//span[@aria-label='Development section.']/ancestor::div[@class='grid-group']//a",
			ChangedFile: "//tr[@role='treeitem']",
			Heading:     "//span[@role='heading']",
			Path:        "//span[@role='heading']/parent::span/following-sibling::span",
			Content:     "(//div[contains(@class, 'lines-content')])[last()]",
		},
	}
}
