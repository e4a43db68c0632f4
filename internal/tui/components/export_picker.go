package components

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tis24dev/savevault/internal/notify"
	"github.com/tis24dev/savevault/internal/tui"
)

// Field labels of the export picker form.
const (
	LabelSnapshotCount = "Snapshots per item"
	LabelDestination   = "Destination folder"
)

// ErrPickerCancelled is returned when the user leaves the picker without submitting.
var ErrPickerCancelled = errors.New("export cancelled by user")

// ExportChoice is what the user picked for an export run.
type ExportChoice struct {
	Count       int
	Destination string
}

var runApp = func(app *tui.App) error {
	return app.Run()
}

// RequirePositiveInt rejects values that are not integers >= 1.
func RequirePositiveInt(name string) ValidatorFunc {
	return func(value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a whole number of at least 1", name)
		}
		return nil
	}
}

// RequireNonEmpty rejects blank values.
func RequireNonEmpty(name string) ValidatorFunc {
	return func(value string) error {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// ParseExportChoice converts the picker form values into an ExportChoice.
func ParseExportChoice(values map[string]string) (ExportChoice, error) {
	if err := RequirePositiveInt(LabelSnapshotCount)(values[LabelSnapshotCount]); err != nil {
		return ExportChoice{}, err
	}
	if err := RequireNonEmpty(LabelDestination)(values[LabelDestination]); err != nil {
		return ExportChoice{}, err
	}
	n, _ := strconv.Atoi(strings.TrimSpace(values[LabelSnapshotCount]))
	return ExportChoice{
		Count:       n,
		Destination: strings.TrimSpace(values[LabelDestination]),
	}, nil
}

// NewExportPicker builds the export form. On submit the parsed choice is
// passed to onPick; cancelling calls onCancel.
func NewExportPicker(app *tui.App, defaults ExportChoice, onPick func(ExportChoice), onCancel func()) *Form {
	count := ""
	if defaults.Count > 0 {
		count = strconv.Itoa(defaults.Count)
	}

	form := NewForm(app)
	form.AddInputFieldWithValidation(LabelSnapshotCount, count, 6, RequirePositiveInt(LabelSnapshotCount))
	form.AddInputFieldWithValidation(LabelDestination, defaults.Destination, 48, RequireNonEmpty(LabelDestination))
	form.SetOnSubmit(func(values map[string]string) error {
		choice, err := ParseExportChoice(values)
		if err != nil {
			return err
		}
		if onPick != nil {
			onPick(choice)
		}
		return nil
	})
	form.SetOnCancel(onCancel)
	form.AddSubmitButton("Export")
	form.AddCancelButton("Cancel")
	form.SetBorderWithTitle("Export Backups")
	form.SetParentView(form.Form)
	return form
}

// RunExportPicker shows the export picker and blocks until the user submits
// or cancels.
func RunExportPicker(theme string, defaults ExportChoice) (ExportChoice, error) {
	app := tui.NewApp(theme)
	var (
		picked ExportChoice
		ok     bool
	)
	form := NewExportPicker(app, defaults, func(c ExportChoice) {
		picked = c
		ok = true
	}, nil)
	app.SetRoot(form.Form, true).SetFocus(form.Form)

	if err := runApp(app); err != nil {
		return ExportChoice{}, fmt.Errorf("export picker: %w", err)
	}
	if !ok {
		return ExportChoice{}, ErrPickerCancelled
	}
	return picked, nil
}

// RunConfirm shows a Yes/No modal and reports whether Yes was chosen.
func RunConfirm(theme, title, message string) (bool, error) {
	app := tui.NewApp(theme)
	yes := false
	ShowConfirm(app, title, message, func() { yes = true }, nil)
	if err := runApp(app); err != nil {
		return false, fmt.Errorf("confirm dialog: %w", err)
	}
	return yes, nil
}

// RunAlert shows alert in a modal and blocks until it is dismissed.
func RunAlert(theme string, alert notify.Alert) error {
	app := tui.NewApp(theme)
	ShowAlert(app, alert)
	if err := runApp(app); err != nil {
		return fmt.Errorf("alert dialog: %w", err)
	}
	return nil
}
