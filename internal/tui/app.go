// Package tui holds the terminal UI used for interactive prompts.
package tui

import (
	"github.com/rivo/tview"
)

// App wraps tview.Application with the configured theme.
type App struct {
	*tview.Application
	palette  Palette
	stopHook func()
}

// NewApp creates a new TUI application styled for theme ("dark" or "light").
func NewApp(theme string) *App {
	app := &App{
		Application: tview.NewApplication(),
		palette:     PaletteFor(theme),
	}

	app.EnableMouse(true)

	p := app.palette
	tview.Styles.PrimitiveBackgroundColor = p.Background
	tview.Styles.ContrastBackgroundColor = p.Background
	tview.Styles.MoreContrastBackgroundColor = p.Field
	tview.Styles.BorderColor = p.Accent
	tview.Styles.TitleColor = p.Accent
	tview.Styles.GraphicsColor = p.Accent
	tview.Styles.PrimaryTextColor = p.Text
	tview.Styles.SecondaryTextColor = p.Label
	tview.Styles.TertiaryTextColor = p.Muted
	tview.Styles.InverseTextColor = p.Background
	tview.Styles.ContrastSecondaryTextColor = p.Text
	return app
}

// Run starts the event loop. It refuses to start once the abort context is
// done and stops the loop when that context ends mid-run.
func (a *App) Run() error {
	if err := abortErr(); err != nil {
		return err
	}
	done := make(chan struct{})
	defer close(done)
	watchAbort(a, done)
	return a.Application.Run()
}

// Palette returns the colors in use.
func (a *App) Palette() Palette {
	if a == nil {
		return DarkPalette
	}
	return a.palette
}

func (a *App) Stop() {
	if a == nil {
		return
	}
	if a.stopHook != nil {
		a.stopHook()
		return
	}
	if a.Application != nil {
		a.Application.Stop()
	}
}
