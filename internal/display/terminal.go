// Package display provides terminal output formatting for catalogmix.
package display

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gauthierbraillon/catalogmix/internal/catalog"
)

const (
	separator      = " • "
	currency       = "FCFA"
	descriptionMax = 80
)

// TerminalFormatter formats catalog items for terminal display.
type TerminalFormatter struct {
	printer *message.Printer
}

// NewTerminalFormatter creates a formatter that groups prices the French way.
func NewTerminalFormatter() *TerminalFormatter {
	return &TerminalFormatter{
		printer: message.NewPrinter(language.French),
	}
}

// FormatItem formats a single catalog item for display.
func (f *TerminalFormatter) FormatItem(item catalog.Item) string {
	var lines []string

	// Header: [SOURCE] Name
	header := fmt.Sprintf("[%s] %s", strings.ToUpper(item.Source), item.Name)
	if badges := formatBadges(item); badges != "" {
		header += "  " + badges
	}
	lines = append(lines, header)

	lines = append(lines, "  "+strings.Join(f.statParts(item), separator))

	if who := joinNonEmpty(item.VendorName, item.CategoryName); who != "" {
		lines = append(lines, "  "+who)
	}
	if item.Description != "" {
		lines = append(lines, "  "+f.TruncateText(item.Description, descriptionMax))
	}
	if item.ImageURL != "" {
		lines = append(lines, "  "+item.ImageURL)
	}

	return strings.Join(lines, "\n") + "\n"
}

func (f *TerminalFormatter) statParts(item catalog.Item) []string {
	price := f.FormatPrice(item.EffectivePrice())
	if item.IsOnPromotion && item.EffectivePrice() < item.Price {
		price += " (was " + f.FormatPrice(item.Price) + ")"
	}
	parts := []string{price}

	if item.ReviewCount > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f (%s)", item.Rating, plural(item.ReviewCount, "review")))
	}
	if item.UnitsSold > 0 {
		parts = append(parts, fmt.Sprintf("%d sold", item.UnitsSold))
	}
	return parts
}

func formatBadges(item catalog.Item) string {
	var badges []string
	if item.IsTrending {
		badges = append(badges, "🔥 trending")
	}
	if item.IsNew {
		badges = append(badges, "new")
	}
	if item.IsOnPromotion {
		badges = append(badges, "on sale")
	}
	if len(badges) == 0 {
		return ""
	}
	return "(" + strings.Join(badges, ", ") + ")"
}

// FormatCatalog formats multiple items for display.
func (f *TerminalFormatter) FormatCatalog(items []catalog.Item) string {
	if len(items) == 0 {
		return "No products to display.\n"
	}

	var formatted []string
	for _, item := range items {
		formatted = append(formatted, f.FormatItem(item))
	}

	return strings.Join(formatted, "\n---\n\n")
}

// FormatCategories lists category names, one per line.
func (f *TerminalFormatter) FormatCategories(categories []string) string {
	if len(categories) == 0 {
		return "No categories to display.\n"
	}
	return strings.Join(categories, "\n") + "\n"
}

// FormatWarnings formats soft failures for stderr.
func (f *TerminalFormatter) FormatWarnings(warnings []string) string {
	var b strings.Builder
	for _, w := range warnings {
		b.WriteString("warning: ")
		b.WriteString(w)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatPrice renders a whole FCFA amount with French digit grouping.
func (f *TerminalFormatter) FormatPrice(amount int64) string {
	return f.printer.Sprintf("%d", amount) + " " + currency
}

// FormatTimestamp formats a timestamp as relative time.
func (f *TerminalFormatter) FormatTimestamp(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// TruncateText truncates text to maxLen characters, adding "..." if truncated.
func (f *TerminalFormatter) TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, separator)
}
