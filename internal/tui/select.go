// Package tui provides interactive terminal UI components.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/libsearch/internal/oai"
)

const (
	defaultListWidth  = 72
	defaultListHeight = 20
)

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

// SelectionAction represents the user's action in the selection UI.
type SelectionAction int

const (
	// ActionNone indicates no action was taken.
	ActionNone SelectionAction = iota
	// ActionSelected indicates the user selected a set.
	ActionSelected
	// ActionSkipped indicates the user chose to harvest without a set.
	ActionSkipped
	// ActionStopped indicates the user quit without harvesting.
	ActionStopped
)

// SelectionResult holds the result of a TUI selection.
type SelectionResult struct {
	Action    SelectionAction
	Selection *oai.Set
}

type setItem struct {
	oai.Set
}

func (i setItem) Title() string {
	if i.Name == "" {
		return i.Spec
	}
	return i.Name
}

func (i setItem) FilterValue() string {
	return i.Spec + " " + i.Name
}

func (i setItem) Description() string {
	return i.Set.Description
}

type itemStyles struct {
	normal      lipgloss.Style
	selected    lipgloss.Style
	specStyle   lipgloss.Style
	nameStyle   lipgloss.Style
	detailStyle lipgloss.Style
}

func newItemStyles() itemStyles {
	asciiBorder := lipgloss.Border{
		Top:         "-",
		Bottom:      "-",
		Left:        "|",
		Right:       "|",
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
	}

	container := lipgloss.NewStyle().
		Border(asciiBorder).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Foreground(lipgloss.Color("252"))

	selected := container.
		BorderForeground(lipgloss.Color("214")).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("237"))

	return itemStyles{
		normal:   container,
		selected: selected,
		specStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("110")),
		nameStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("254")),
		detailStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("248")),
	}
}

type setDelegate struct {
	styles itemStyles
}

func newDelegate() setDelegate {
	return setDelegate{styles: newItemStyles()}
}

func (d setDelegate) Height() int                         { return 4 }
func (d setDelegate) Spacing() int                        { return 1 }
func (d setDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d setDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	set, ok := item.(setItem)
	if !ok {
		return
	}

	specLine := d.styles.specStyle.Render(fmt.Sprintf("[%s]", set.Spec))
	nameLine := d.styles.nameStyle.Render(truncate(set.Title(), m.Width()-4))
	detailLine := d.styles.detailStyle.Render(truncate(set.Description(), m.Width()-4))
	content := lipgloss.JoinVertical(lipgloss.Left, specLine, nameLine, detailLine)

	container := d.styles.normal
	if idx == m.Index() {
		container = d.styles.selected
	}
	_, _ = fmt.Fprint(w, container.Render(content))
}

type model struct {
	list     list.Model
	endpoint string
	result   SelectionResult
}

func newModel(endpoint string, sets []oai.Set) *model {
	listItems := make([]list.Item, len(sets))
	for i, s := range sets {
		listItems[i] = setItem{Set: s}
	}

	l := list.New(listItems, newDelegate(), defaultListWidth, defaultListHeight)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowPagination(true)
	l.DisableQuitKeybindings()
	l.Styles.NoItems = lipgloss.NewStyle()

	return &model{
		list:     l,
		endpoint: endpoint,
		result:   SelectionResult{Action: ActionNone},
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering && msg.String() != "ctrl+c" {
			break
		}
		switch msg.String() {
		case "enter":
			if selected, ok := m.list.SelectedItem().(setItem); ok {
				set := selected.Set
				m.result = SelectionResult{Action: ActionSelected, Selection: &set}
				return m, tea.Quit
			}
		case "a":
			m.result = SelectionResult{Action: ActionSkipped}
			return m, tea.Quit
		case "ctrl+c", "q":
			m.result = SelectionResult{Action: ActionStopped}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		width := clamp(defaultListWidth, msg.Width-4, 40)
		height := clamp(defaultListHeight, msg.Height-6, 5)
		m.list.SetSize(width, height)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	header := headerStyle.Render(fmt.Sprintf("Sets of %s (%d)", m.endpoint, len(m.list.Items())))
	help := helpStyle.Render("Up/Down navigate | / filter | Enter harvest set | a all records | q quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View(), help)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			MarginTop(1).
			Foreground(lipgloss.Color("244"))
)

// SelectSet lets the user pick one of an OAI-PMH repository's sets.
func SelectSet(endpoint string, sets []oai.Set) (SelectionResult, error) {
	if len(sets) == 0 {
		return SelectionResult{Action: ActionSkipped}, nil
	}

	finalModel, err := runProgram(newModel(endpoint, sets))
	if err != nil {
		return SelectionResult{}, err
	}
	if typed, ok := finalModel.(*model); ok {
		return typed.result, nil
	}
	return SelectionResult{}, fmt.Errorf("unexpected program result")
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if width <= 0 || len(runes) <= width {
		return value
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

func clamp(defaultValue, available, minimum int) int {
	width := defaultValue
	if available > 0 && available < defaultValue {
		width = available
	}
	if width < minimum {
		width = minimum
	}
	return width
}
