// Package ui holds the terminal styling used by the mixtape CLI.
//
// A [Palette] names the few roles the CLI prints in (title, ok, error, warning, help) and renders them with lipgloss.
// [Plain] renders text unchanged and is used when output is not a terminal.
package ui
