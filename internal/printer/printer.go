package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/posemath"
)

func init() {
	// Users can disable colors with NO_COLOR
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed, color.Bold)
	cyan    = color.New(color.FgCyan)
	magenta = color.New(color.FgMagenta)

	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// SetOutput redirects regular and error output. Nil writers keep the
// current destination.
func SetOutput(stdout, stderr io.Writer) {
	if stdout != nil {
		out = stdout
	}
	if stderr != nil {
		errOut = stderr
	}
}

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Fprintf(out, "✓ %s", msg)
	} else {
		green.Fprint(out, msg)
	}
}

func Info(format string, a ...any) {
	fmt.Fprintf(out, format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Fprintf(out, "⚠️  %s", msg)
	} else {
		yellow.Fprint(out, msg)
	}
}

// Error prints a formatted error with explanation and suggestions to the
// error output and returns an error carrying only the title.
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(errOut, "%s\n\n", title)
	fmt.Fprintf(errOut, "%s\n", explanation)

	if len(suggestions) > 0 {
		fmt.Fprintf(errOut, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(errOut, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(errOut, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(errOut, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	return fmt.Errorf("%s", title)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Fprintf(out, "→ %s", fmt.Sprintf(format, a...))
}

// Event prints one line describing an outbound event.
func Event(event events.Event) {
	line := FormatEvent(event)
	if _, failed := event.(events.VisualizationFailed); failed {
		red.Fprintln(out, line)
		return
	}

	switch event.Kind().Namespace() {
	case "anchor":
		cyan.Fprintln(out, line)
	case "voice":
		magenta.Fprintln(out, line)
	case "components":
		green.Fprintln(out, line)
	default:
		fmt.Fprintln(out, line)
	}
}

// FormatEvent renders an event as "<kind> key=value ...".
func FormatEvent(event events.Event) string {
	var details string
	switch e := event.(type) {
	case events.VisualizationAttached:
		details = fmt.Sprintf("anchor=%s reference=%s asset=%s model=%s", e.AnchorID, e.ReferenceName, e.AssetName, e.Model)
	case events.VisualizationDetached:
		details = fmt.Sprintf("anchor=%s", e.AnchorID)
	case events.VisualizationFailed:
		details = fmt.Sprintf("anchor=%s asset=%s error=%q", e.AnchorID, e.AssetName, e.Err)
	case events.AssetPreloaded:
		details = fmt.Sprintf("asset=%s loaded=%d/%d", e.AssetName, e.Loaded, e.Total)
	case events.LocalPoseComputed:
		details = fmt.Sprintf("translation=%s", formatVec(posemath.Translation(e.Pose)))
	case events.LocalPoseApplied:
		details = fmt.Sprintf("entity=%s translation=%s first_attach=%t", e.Entity, formatVec(posemath.Translation(e.Pose)), e.FirstAttach)
	case events.SessionAwake:
		details = fmt.Sprintf("transcript=%q", e.Transcript)
	case events.SessionAsleep:
		details = fmt.Sprintf("reason=%s", e.Reason)
	case events.WakeWordDetectedChanged:
		details = fmt.Sprintf("detected=%t", e.Detected)
	case events.CommandRecognized:
		details = fmt.Sprintf("command=%q strategy=%s transcript=%q", e.Command, e.Strategy, e.Transcript)
	case events.CommandExecutedChanged:
		details = fmt.Sprintf("executed=%t transcript=%q", e.Executed, e.Transcript)
	case events.ComponentVisibilityChanged:
		details = fmt.Sprintf("component=%q enabled=%t", e.Component, e.Enabled)
	}

	if details == "" {
		return string(event.Kind())
	}
	return string(event.Kind()) + " " + details
}

func formatVec(v mgl64.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v[0], v[1], v[2])
}

// Println prints a plain message (for output that doesn't need coloring)
func Println(a ...any) {
	fmt.Fprintln(out, a...)
}

// Printf prints a plain formatted message (for output that doesn't need coloring)
func Printf(format string, a ...any) {
	fmt.Fprintf(out, format, a...)
}
