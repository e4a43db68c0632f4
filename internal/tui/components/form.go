package components

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tis24dev/savevault/internal/tui"
)

// ValidatorFunc is a function that validates an input value
type ValidatorFunc func(value string) error

type fieldRule struct {
	label      string
	validators []ValidatorFunc
}

// Form wraps tview.Form with themed styling and validation
type Form struct {
	*tview.Form
	app        *tui.App
	rules      []fieldRule
	onSubmit   func(values map[string]string) error
	onCancel   func()
	parentView tview.Primitive // The layout containing this form, for inline error display
}

// NewForm creates a new form styled with the app palette
func NewForm(app *tui.App) *Form {
	p := app.Palette()
	form := tview.NewForm().
		SetButtonsAlign(tview.AlignCenter).
		SetButtonBackgroundColor(p.Accent).
		SetButtonTextColor(tcell.ColorWhite).
		SetLabelColor(p.Label).
		SetFieldBackgroundColor(p.Field).
		SetFieldTextColor(p.Text)

	return &Form{
		Form: form,
		app:  app,
	}
}

// AddInputFieldWithValidation adds an input field whose value must pass
// validators, checked in the order fields were added.
func (f *Form) AddInputFieldWithValidation(label, value string, fieldWidth int, validators ...ValidatorFunc) *Form {
	f.rules = append(f.rules, fieldRule{label: label, validators: validators})
	f.Form.AddInputField(label, value, fieldWidth, nil, nil)
	return f
}

// SetOnSubmit sets the submit handler
func (f *Form) SetOnSubmit(handler func(values map[string]string) error) *Form {
	f.onSubmit = handler
	return f
}

// SetOnCancel sets the cancel handler
func (f *Form) SetOnCancel(handler func()) *Form {
	f.onCancel = handler
	return f
}

// SetParentView sets the parent layout containing this form (for inline error display)
func (f *Form) SetParentView(parent tview.Primitive) *Form {
	f.parentView = parent
	return f
}

// AddSubmitButton adds a styled submit button
func (f *Form) AddSubmitButton(label string) *Form {
	f.Form.AddButton(label, func() {
		if f.onSubmit != nil {
			values := f.GetFormValues()
			if err := f.ValidateAll(values); err != nil {
				if f.parentView != nil {
					ShowErrorInline(f.app, "Validation Error", err.Error(), f.parentView)
				} else {
					ShowError(f.app, "Validation Error", err.Error())
				}
				return
			}
			if err := f.onSubmit(values); err != nil {
				if f.parentView != nil {
					ShowErrorInline(f.app, "Error", err.Error(), f.parentView)
				} else {
					ShowError(f.app, "Error", err.Error())
				}
				return
			}
		}
		f.app.Stop()
	})
	return f
}

// AddCancelButton adds a styled cancel button
func (f *Form) AddCancelButton(label string) *Form {
	f.Form.AddButton(label, func() {
		if f.onCancel != nil {
			f.onCancel()
		}
		f.app.Stop()
	})
	return f
}

// GetFormValues returns the text of every input field keyed by label.
func (f *Form) GetFormValues() map[string]string {
	values := make(map[string]string)
	for i := 0; i < f.Form.GetFormItemCount(); i++ {
		if input, ok := f.Form.GetFormItem(i).(*tview.InputField); ok {
			values[input.GetLabel()] = input.GetText()
		}
	}
	return values
}

// ValidateAll returns the first validation error, in field order.
func (f *Form) ValidateAll(values map[string]string) error {
	for _, rule := range f.rules {
		for _, validator := range rule.validators {
			if err := validator(values[rule.label]); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetBorderWithTitle sets border and title in the accent color
func (f *Form) SetBorderWithTitle(title string) *Form {
	accent := f.app.Palette().Accent
	f.Form.SetBorder(true).
		SetTitle(" " + title + " ").
		SetTitleAlign(tview.AlignCenter).
		SetTitleColor(accent).
		SetBorderColor(accent)
	return f
}
