// Package triage runs one poll-and-process cycle over an inbox: it lists
// unread messages, classifies each against the configured rules, applies the
// matching label, sends templated automatic replies, and saves attachments
// to disk.
//
// A cycle is fault isolated per message. A failure while fetching, labeling,
// replying to, or extracting from one message is counted and logged, and the
// cycle continues with the next message. Only a failure to list messages
// aborts the cycle.
package triage
