package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/huanfeng/apkset-cli/internal/errors"
	"gopkg.in/yaml.v3"
)

var (
	colorGreen   = lipgloss.Color("10")
	colorRed     = lipgloss.Color("204")
	colorYellow  = lipgloss.Color("220")
	colorCyan    = lipgloss.Color("14")
	colorDimGray = lipgloss.Color("240")

	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	styleWarn    = lipgloss.NewStyle().Foreground(colorYellow)
	styleNoun    = lipgloss.NewStyle().Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Faint(true)
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
)

// render applies style unless colors are disabled.
func render(style lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return style.Render(s)
}

func checkmark(msg string) string {
	return render(styleSuccess, "✔") + " " + msg
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "online":
		return styleSuccess
	case "unauthorized":
		return styleWarn
	case "offline":
		return styleError
	default:
		return styleDim
	}
}

// renderTable draws rows under headers. Without colors the table has no
// border styling so the output stays plain.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	if !noColor {
		t = t.BorderStyle(lipgloss.NewStyle().Foreground(colorDimGray)).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return styleHeader.Padding(0, 1)
				}
				return lipgloss.NewStyle().Padding(0, 1)
			})
	} else {
		t = t.StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	}
	return t.String()
}

// writeStructured encodes v as json or yaml.
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return unsupportedFormat(format)
	}
}

func unsupportedFormat(format string) error {
	return errors.Newf(errors.KindIllegalInput, "UNSUPPORTED_FORMAT",
		"Unsupported output format '%s', expected json or yaml.", format)
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ",")
}

func intOrDash(n int) string {
	if n <= 0 {
		return "-"
	}
	return fmt.Sprint(n)
}
