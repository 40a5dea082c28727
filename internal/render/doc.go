// Package render turns assistant markdown into terminal output.
//
// # Overview
//
// Replies from the backend are markdown. Two renderers are provided:
//
//   - Plain walks the goldmark AST and emits unformatted text, used when
//     output is piped or the user asks for plain output.
//   - Terminal wraps a glamour TermRenderer for the chat UI and interactive
//     send loop.
package render
