// Package console renders run progress and results to the terminal.
package console

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/muesli/reflow/truncate"

	"github.com/tildaslashalef/reviewflow/internal/battery"
	"github.com/tildaslashalef/reviewflow/internal/store"
)

// detailWidth caps the detail column so tool output never wrecks the table.
const detailWidth = 72

// Theme - exported theme colors for consistent output
var Theme = struct {
	Success text.Colors
	Info    text.Colors
	Warning text.Colors
	Error   text.Colors
	Heading text.Colors
	Subtle  text.Colors
}{
	Success: text.Colors{text.FgGreen},
	Info:    text.Colors{text.FgBlue},
	Warning: text.Colors{text.FgYellow},
	Error:   text.Colors{text.FgRed},
	Heading: text.Colors{text.FgHiCyan, text.Bold},
	Subtle:  text.Colors{text.FgHiBlack},
}

var bannerStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.AdaptiveColor{Light: "#3465A4", Dark: "#729FCF"}).
	Padding(0, 2)

// PrintBanner prints the run banner with repository and PR identity.
func PrintBanner(repository string, prNumber int) {
	fmt.Println(bannerStyle.Render(fmt.Sprintf("reviewflow · %s · PR #%d", repository, prNumber)))
}

// PrintHeading prints a formatted heading
func PrintHeading(title string) {
	fmt.Println(Theme.Heading.Sprint(title))
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Println(Theme.Success.Sprint("✓ ") + message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Println(Theme.Info.Sprint("ℹ ") + message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println(Theme.Warning.Sprint("⚠ ") + message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Println(Theme.Error.Sprint("✗ ") + message)
}

// newTable creates a table writer with the shared style
func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	if title != "" {
		t.SetTitle(title)
	}

	style := table.StyleLight
	style.Color.Header = text.Colors{text.FgHiBlue, text.Bold}
	style.Color.Border = text.Colors{text.FgBlue}
	style.Title.Colors = Theme.Heading
	style.Box.PaddingLeft = " "
	style.Box.PaddingRight = " "
	t.SetStyle(style)

	return t
}

// PrintBatteryResult renders the per-tool outcomes as a table.
func PrintBatteryResult(result *battery.Result) {
	if result.NothingToAnalyze {
		PrintInfo("No files to analyze")
		return
	}

	t := newTable("Analysis Results")
	t.AppendHeader(table.Row{"Tool", "Outcome", "Detail"})

	for _, o := range result.Outcomes {
		t.AppendRow(table.Row{o.Tool, statusCell(o.Status), detailCell(o)})
	}

	t.Render()
}

func statusCell(status battery.Status) string {
	switch status {
	case battery.StatusNoIssues:
		return Theme.Success.Sprint("no issues")
	case battery.StatusIssuesFound:
		return Theme.Warning.Sprint("issues found")
	default:
		return Theme.Error.Sprint("failed")
	}
}

func detailCell(o battery.Outcome) string {
	switch o.Status {
	case battery.StatusIssuesFound:
		first := strings.SplitN(strings.TrimSpace(o.Output), "\n", 2)[0]
		return truncate.StringWithTail(first, detailWidth, "…")
	case battery.StatusFailed:
		return truncate.StringWithTail(o.Reason, detailWidth, "…")
	default:
		return ""
	}
}

// PrintRunHistory renders recent runs as a table.
func PrintRunHistory(runs []*store.Run) {
	if len(runs) == 0 {
		PrintInfo("No recorded runs")
		return
	}

	t := newTable("Run History")
	t.AppendHeader(table.Row{"ID", "Name", "Repository", "PR", "Status", "Issues", "Started"})

	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.Name,
			r.Repository,
			r.PRNumber,
			string(r.Status),
			r.IssuesFound,
			r.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	t.Render()
}

// RenderReport renders the markdown report body for terminal preview.
// Falls back to the raw text when the renderer cannot be constructed.
func RenderReport(body string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return body
	}

	out, err := r.Render(body)
	if err != nil {
		return body
	}
	return out
}
