package model

// EmailTemplate is a named subject/body pair stored in the
// `email_templates` table. Templates are read-only at runtime; a
// missing or corrupt record degrades to a built-in fallback instead
// of failing the pipeline.
//
// Fields:
//  ID      – primary key identifier.
//  Name    – unique template name (e.g. "approval", "rejection_fees_overdue").
//  Subject – subject template with {key} placeholders.
//  Body    – body template with {key} placeholders.
type EmailTemplate struct {
	ID      uint64 // email_templates.id
	Name    string // email_templates.name
	Subject string // email_templates.subject
	Body    string // email_templates.body
}
