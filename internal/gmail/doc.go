// Package gmail provides the mailbox client and the message parser for the
// Gmail API.
//
// The client wraps the Gmail Users service with the small surface the
// orchestrator needs:
//   - list and fetch recent messages
//   - get-or-create and apply labels (idempotent by label name)
//   - download attachment content
//   - send and reply to emails
//
// Transient API failures (HTTP 429 and 5xx) are retried a bounded number of
// times inside the client before an error surfaces to the caller.
//
// The parser turns a raw *gmail.Message into an immutable Message with
// normalized sender, subject, body and attachment references. Parsing is a
// pure transform; the only hard requirement is the provider message id.
//
// Authentication uses the stored OAuth token from the google package.
//
// Example usage:
//
//	ctx := context.Background()
//	client, err := gmail.NewClient(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := client.ListMessageIDs("in:inbox", 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	raw, err := client.GetMessage(ids[0])
//	if err != nil {
//	    log.Fatal(err)
//	}
//	msg, err := gmail.ParseMessage(raw)
package gmail
