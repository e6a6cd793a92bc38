package logging

import "github.com/fatih/color"

// Prefix colors per level. fatih/color disables these automatically when
// stderr is not a terminal, or when NO_COLOR is set.
var (
	colorStamp = color.New(color.FgWhite)
	colorError = color.New(color.FgRed, color.Bold)
	colorWarn  = color.New(color.FgRed)
	colorInfo  = color.New(color.Reset)
	colorDebug = color.New(color.FgGreen)
	colorTrace = color.New(color.FgYellow)
)

func (l Level) color() *color.Color {
	switch l {
	case Error:
		return colorError
	case Warn:
		return colorWarn
	case Info:
		return colorInfo
	case Debug:
		return colorDebug
	default:
		return colorTrace
	}
}
