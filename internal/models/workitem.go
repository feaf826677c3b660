// -----------------------------------------------------------------------
// Work Item Records - snapshots extracted from a work item detail view
// -----------------------------------------------------------------------

package models

import "time"

// FieldSource identifies which history subtree a field change was read from
type FieldSource string

const (
	FieldSourcePlain    FieldSource = "plain"
	FieldSourceRichText FieldSource = "rich_text"
)

// WorkItem is the aggregate of every section extracted from one detail view
type WorkItem struct {
	RunID               string                `json:"run_id"`
	URL                 string                `json:"url"`
	Description         string                `json:"description,omitempty"`          // Raw description HTML
	DescriptionMarkdown string                `json:"description_markdown,omitempty"` // Cleaned markdown rendition
	History             []HistoryEntry        `json:"history"`
	RelatedWork         []RelatedWorkGroup    `json:"related_work"`
	Discussions         []DiscussionEntry     `json:"discussions"`
	Attachments         []AttachmentRef       `json:"attachments"` // nil when the item has no attachments
	Development         []DevelopmentArtifact `json:"development"`
	ExtractedAt         time.Time             `json:"extracted_at"`
}

// HistoryEntry is one rendered history item
type HistoryEntry struct {
	Actor     string        `json:"actor"`
	Timestamp string        `json:"timestamp"`
	Title     string        `json:"title"`
	Comment   *string       `json:"comment"`
	Fields    []FieldChange `json:"fields"`
	Links     []LinkRef     `json:"links"`
}

// FieldChange has the same shape for plain and rich-text fields
type FieldChange struct {
	Name     string      `json:"name"`
	OldValue *string     `json:"old_value"`
	NewValue *string     `json:"new_value"`
	Source   FieldSource `json:"source"`
}

// LinkRef is a cross-item link recorded in a history entry
type LinkRef struct {
	Type       string  `json:"type"`
	TargetPath *string `json:"target_path"`
	Title      string  `json:"title"`
}

// RelatedWorkGroup groups related items by link type (Parent, Child, Related...)
type RelatedWorkGroup struct {
	Type  string           `json:"type"`
	Items []RelatedWorkRef `json:"items"`
}

// RelatedWorkRef addresses one revision of one related link.
// LinkTarget is {id}_{title}_update_{stamp}_{type}.
type RelatedWorkRef struct {
	FilenameSource string `json:"filename_source"`
	LinkTarget     string `json:"link_target"`
	UpdatedAt      string `json:"updated_at"`
}

// DiscussionEntry is one comment in the discussion thread
type DiscussionEntry struct {
	Author      string          `json:"author"`
	Content     string          `json:"content"`
	Timestamp   string          `json:"timestamp"`
	Attachments []AttachmentRef `json:"attachments"`
}

// AttachmentRef is a rewritten resource URL and the unique file name it downloads as
type AttachmentRef struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// ChangedFile is one file rendered in a development artifact's change list
type ChangedFile struct {
	FileName string `json:"file_name"`
	Path     string `json:"path"`
	Content  string `json:"content"`
}

// DevelopmentArtifact is a linked commit or pull request opened in a secondary window
type DevelopmentArtifact struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	ChangedFiles []ChangedFile `json:"changed_files"`
}
