package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/recipe"
	"github.com/matzehuels/buckaroo/pkg/resolver"
	"github.com/matzehuels/buckaroo/pkg/source"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleKey = lipgloss.NewStyle().Foreground(colorGray).Width(14)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

// printError prints an error message.
func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

// printWarning prints a warning message.
func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printInfo prints an info/status message.
func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented detail line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	fmt.Fprintln(w, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// =============================================================================
// Resolution Output
// =============================================================================

// printResolved prints one line per package in install order: identifier,
// version and where the code lives.
func printResolved(w io.Writer, res recipe.ResolvedDependencies) {
	order := res.Order()
	width := 0
	for _, id := range order {
		width = max(width, len(id.String()))
	}
	name := lipgloss.NewStyle().Foreground(colorCyan).Width(width)
	for _, id := range order {
		d := res[id]
		fmt.Fprintf(w, "  %s  %s  %s\n",
			name.Render(id.String()),
			StyleValue.Render(d.Version.String()),
			StyleLink.Render(location(d.RecipeVersion.Source)))
	}
}

// location renders a version source as url#commit or url.
func location(s recipe.Source) string {
	if c, ok := s.Commit(); ok {
		return c.URL + "#" + shortCommit(c.Commit)
	}
	return s.URL()
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}

// explain prints a failed resolution with whatever detail the error
// carries: the competing requirements of a conflict, or similar names for
// a recipe that does not exist.
func explain(w io.Writer, err error, finder source.Finder) {
	var conflict *resolver.ConflictError
	var notFound *source.RecipeNotFoundError
	switch {
	case stderrors.As(err, &conflict):
		printError(w, "No version of %s satisfies every requirement", StyleHighlight.Render(conflict.Identifier.String()))
		if conflict.Existing != nil {
			printDetail(w, "%s", conflict.Existing)
		}
		printDetail(w, "%s", conflict.Incoming)
		if len(conflict.Available) > 0 {
			vs := make([]string, len(conflict.Available))
			for i, v := range conflict.Available {
				vs[i] = v.String()
			}
			printDetail(w, "available: %s", strings.Join(vs, ", "))
		}
	case stderrors.As(err, &notFound):
		printError(w, "%s", errors.UserMessage(err))
		if finder == nil {
			return
		}
		if candidates := finder.FindCandidates(notFound.Identifier); len(candidates) > 0 {
			printInfo(w, "Maybe you meant:")
			for _, c := range candidates {
				printDetail(w, "%s", c)
			}
		}
	default:
		printError(w, "%s", errors.UserMessage(err))
	}
}
