// Package cmd implements the command-line interface for inboxpilot.
//
// This package provides the following commands:
//   - run: Poll the inbox once and process matching messages
//   - auth: Authorize access to a Gmail account via OAuth
//   - version: Display version information
//
// The run command is the default command when no subcommand is specified.
package cmd
