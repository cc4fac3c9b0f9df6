// Package webchat serves a read-only, server-rendered transcript page for a
// conversation. Assistant replies are markdown and get converted to HTML;
// user text is escaped verbatim. Chart messages expose their generated SQL
// and chart configuration in collapsible detail blocks.
package webchat
