package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/argo-replay/internal/config"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
)

// Prompt states.
const (
	StateChoice = iota
	StateSymbol
	StateStart
	StateEnd
	StateDone
)

const choiceDefault = "default"

// Selection is the symbol and date range chosen in the prompt.
type Selection struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

// PromptModel asks whether to keep the default selection and, if not, for a symbol,
// a start date and an end date. Invalid input ends the prompt with an error.
type PromptModel struct {
	state     int
	input     textinput.Model
	defaults  Selection
	selection Selection
	err       error
	cancelled bool
}

// NewPromptModel creates a prompt showing defaults.
func NewPromptModel(defaults Selection) PromptModel {
	input := textinput.New()
	input.Placeholder = choiceDefault
	input.CharLimit = 16
	input.Width = 20
	input.Focus()

	return PromptModel{
		state:     StateChoice,
		input:     input,
		defaults:  defaults,
		selection: Selection{Symbol: "", Start: time.Time{}, End: time.Time{}},
		err:       nil,
		cancelled: false,
	}
}

// Init implements tea.Model.
func (m PromptModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true

			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m PromptModel) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	switch m.state {
	case StateChoice:
		if value == "" || strings.EqualFold(value, choiceDefault) {
			m.selection = m.defaults
			m.state = StateDone

			return m, tea.Quit
		}

		m.state = StateSymbol
		m.input.Placeholder = m.defaults.Symbol
	case StateSymbol:
		if value == "" {
			return m.fail(errors.New(errors.ErrCodeInvalidConfiguration, "stock symbol must not be empty"))
		}

		m.selection.Symbol = value
		m.state = StateStart
		m.input.Placeholder = types.DateLayout
	case StateStart:
		start, err := config.ParseDate(value)
		if err != nil {
			return m.fail(err)
		}

		m.selection.Start = start
		m.state = StateEnd
		m.input.Placeholder = types.DateLayout
	case StateEnd:
		end, err := config.ParseDate(value)
		if err != nil {
			return m.fail(err)
		}

		if err := config.ValidateDateRange(m.selection.Start, end); err != nil {
			return m.fail(err)
		}

		m.selection.End = end
		m.state = StateDone

		return m, tea.Quit
	}

	return m, nil
}

func (m PromptModel) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.state = StateDone

	return m, tea.Quit
}

// View implements tea.Model.
func (m PromptModel) View() string {
	var b strings.Builder

	switch m.state {
	case StateChoice:
		defaults := fmt.Sprintf("Stock Symbol: %s\nStart Date: %s\nEnd Date: %s",
			m.defaults.Symbol,
			m.defaults.Start.Format(types.DateLayout),
			m.defaults.End.Format(types.DateLayout))

		b.WriteString(TitleStyle.Render("Default Stock Data Information") + "\n")
		b.WriteString(BoxStyle.Render(defaults) + "\n")
		b.WriteString(HelpStyle.Render("Type 'default' to keep it, or 'change' to pick another stock.") + "\n\n")
	case StateSymbol:
		b.WriteString(TitleStyle.Render("Enter stock symbol:") + "\n")
	case StateStart:
		b.WriteString(TitleStyle.Render("Enter start date (YYYY-MM-DD):") + "\n")
	case StateEnd:
		b.WriteString(TitleStyle.Render("Enter end date (YYYY-MM-DD):") + "\n")
	case StateDone:
		if m.err != nil {
			return ErrorStyle.Render("Error: "+m.err.Error()) + "\n"
		}

		return ""
	}

	b.WriteString(m.input.View() + "\n")
	b.WriteString(HelpStyle.Render("enter: confirm • esc: cancel"))

	return b.String()
}

// Result returns the confirmed selection.
func (m PromptModel) Result() (Selection, error) {
	if m.err != nil {
		return Selection{}, m.err
	}

	if m.cancelled || m.state != StateDone {
		return Selection{}, errors.New(errors.ErrCodeInvalidConfiguration, "selection cancelled")
	}

	return m.selection, nil
}

// RunPrompt runs the prompt on in and out and returns the confirmed selection.
func RunPrompt(defaults Selection, in io.Reader, out io.Writer) (Selection, error) {
	program := tea.NewProgram(NewPromptModel(defaults), tea.WithInput(in), tea.WithOutput(out))

	final, err := program.Run()
	if err != nil {
		return Selection{}, fmt.Errorf("prompt failed: %w", err)
	}

	model, ok := final.(PromptModel)
	if !ok {
		return Selection{}, fmt.Errorf("unexpected prompt model %T", final)
	}

	return model.Result()
}
