package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Colors for terminal output
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Bold   = "\033[1m"
)

// Manager handles user interface and output formatting
type Manager struct {
	colors  bool
	verbose bool
}

// NewManager creates a new UI manager
func NewManager(colors, verbose bool) *Manager {
	return &Manager{
		colors:  colors,
		verbose: verbose,
	}
}

// Verbose reports whether verbose output is enabled.
func (m *Manager) Verbose() bool {
	return m.verbose
}

// Colors reports whether colored output is enabled.
func (m *Manager) Colors() bool {
	return m.colors
}

// Success prints a success message
func (m *Manager) Success(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if m.colors {
		fmt.Printf("%s✓%s %s\n", Green, Reset, message)
	} else {
		fmt.Printf("✓ %s\n", message)
	}
}

// Error prints an error message
func (m *Manager) Error(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if m.colors {
		fmt.Printf("%s✗%s %s\n", Red, Reset, message)
	} else {
		fmt.Printf("✗ %s\n", message)
	}
}

// Warning prints a warning message
func (m *Manager) Warning(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if m.colors {
		fmt.Printf("%s⚠%s %s\n", Yellow, Reset, message)
	} else {
		fmt.Printf("⚠ %s\n", message)
	}
}

// Info prints an informational message
func (m *Manager) Info(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if m.colors {
		fmt.Printf("%sℹ%s %s\n", Blue, Reset, message)
	} else {
		fmt.Printf("ℹ %s\n", message)
	}
}

// Progress prints a progress message (only if verbose)
func (m *Manager) Progress(format string, args ...interface{}) {
	if !m.verbose {
		return
	}
	message := fmt.Sprintf(format, args...)
	fmt.Printf("→ %s\n", message)
}

// Header prints a section header
func (m *Manager) Header(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if m.colors {
		fmt.Printf("\n%s%s%s\n", Bold, message, Reset)
	} else {
		fmt.Printf("\n%s\n", message)
	}
}

// InfoIndented prints an indented info message
func (m *Manager) InfoIndented(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Printf("  %s\n", message)
}

// Confirm asks the user for confirmation; a non-nil error means decline.
func (m *Manager) Confirm(message string) error {
	fmt.Printf("%s [y/N]: ", message)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	response = strings.ToLower(strings.TrimSpace(response))
	if response != "y" && response != "yes" {
		return fmt.Errorf("declined by user")
	}
	return nil
}

// Table renders simple aligned tabular output.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a new table
func (m *Manager) NewTable() *Table {
	return &Table{}
}

// SetHeaders sets the table headers
func (t *Table) SetHeaders(headers ...string) {
	t.headers = headers
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render prints the table to stdout
func (t *Table) Render() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if i < len(widths) {
				parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
			} else {
				parts[i] = cell
			}
		}
		fmt.Println(strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	printRow(t.headers)
	separators := make([]string, len(t.headers))
	for i := range t.headers {
		separators[i] = strings.Repeat("-", widths[i])
	}
	printRow(separators)
	for _, row := range t.rows {
		printRow(row)
	}
}
