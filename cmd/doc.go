// Package cmd implements the command-line interface for mailroom.
//
// This package provides the following commands:
//   - run: Start the long-running service with both polling loops
//   - process: Run one email processing cycle and exit
//   - meetings: Run one meeting agenda check and exit
//   - auth: Run the one-time Google OAuth consent flow
//   - version: Display version information
//
// The run command is the default command when no subcommand is specified.
package cmd
