// Package attachments downloads message attachments through the mailbox
// client and persists them to a local directory.
//
// Extraction has partial-failure semantics: a failed attachment is reported
// as a per-item *FetchError and never aborts the remaining attachments of
// the same message.
package attachments
