// Package campaign holds the data model for one bulk-send campaign:
// recipients, the shared message template, attachments, and the pure
// renderer that produces the per-recipient payload handed to the
// automation layer.
//
// Nothing in this package performs I/O except ParseRecipients, which
// reads recipient rows from a CSV stream.
package campaign
