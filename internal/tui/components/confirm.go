package components

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tis24dev/savevault/internal/notify"
	"github.com/tis24dev/savevault/internal/tui"
)

var modalCreatedHook func(*tview.Modal)

func notifyModalCreated(modal *tview.Modal) {
	if modalCreatedHook != nil {
		modalCreatedHook(modal)
	}
}

const continueHint = "\n\n[yellow]Press ENTER to continue[white]"

func showModal(app *tui.App, title, message string, color tcell.Color, buttons []string, done func(int, string)) {
	modal := tview.NewModal().
		SetText(message).
		AddButtons(buttons).
		SetDoneFunc(done)

	notifyModalCreated(modal)

	modal.SetBorder(true).
		SetTitle(" " + title + " ").
		SetTitleAlign(tview.AlignCenter).
		SetTitleColor(color).
		SetBorderColor(color).
		SetBackgroundColor(app.Palette().Background)

	app.SetRoot(modal, true).SetFocus(modal)
}

// ShowConfirm displays a Yes/No confirmation modal
func ShowConfirm(app *tui.App, title, message string, onYes, onNo func()) {
	if !strings.Contains(message, "[yellow]") {
		message = message + "\n\n[yellow]Use TAB or ←→ Arrows to switch | Press ENTER to select[white]"
	}

	showModal(app, title, message, app.Palette().Accent, []string{"Yes", "No"}, func(_ int, label string) {
		if label == "Yes" && onYes != nil {
			onYes()
		} else if label == "No" && onNo != nil {
			onNo()
		}
		app.Stop()
	})
}

func stopOnDone(app *tui.App) func(int, string) {
	return func(int, string) { app.Stop() }
}

// ShowInfo displays an informational modal
func ShowInfo(app *tui.App, title, message string) {
	showModal(app, title, message+continueHint, tui.InfoBlue, []string{"OK"}, stopOnDone(app))
}

// ShowSuccess displays a success modal
func ShowSuccess(app *tui.App, title, message string) {
	showModal(app, title, tui.SymbolSuccess+" "+message+continueHint, tui.SuccessGreen, []string{"OK"}, stopOnDone(app))
}

// ShowError displays an error modal
func ShowError(app *tui.App, title, message string) {
	showModal(app, title, tui.SymbolError+" "+message+continueHint, tui.ErrorRed, []string{"OK"}, stopOnDone(app))
}

// ShowWarning displays a warning modal
func ShowWarning(app *tui.App, title, message string) {
	showModal(app, title, tui.SymbolWarning+" "+message+continueHint, tui.WarningYellow, []string{"OK"}, stopOnDone(app))
}

// ShowErrorInline displays an error modal that returns to the previous screen instead of stopping the app
func ShowErrorInline(app *tui.App, title, message string, returnTo tview.Primitive) {
	showModal(app, title, tui.SymbolError+" "+message+continueHint, tui.ErrorRed, []string{"OK"}, func(int, string) {
		app.SetRoot(returnTo, true).SetFocus(returnTo)
	})
}

// ShowAlert displays a notify.Alert in a modal colored and marked by its
// severity. Detail lines are listed below the main message.
func ShowAlert(app *tui.App, alert notify.Alert) {
	message := alert.Detail
	if len(alert.Details) > 0 {
		if message != "" {
			message += "\n\n"
		}
		message += strings.Join(alert.Details, "\n")
	}
	status := alert.Severity.String()
	showModal(app, alert.Title, tui.StatusSymbol(status)+" "+message+continueHint,
		tui.StatusColor(status), []string{"OK"}, stopOnDone(app))
}
