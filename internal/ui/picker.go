package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

// ErrNoItems is returned by PickItem when there is nothing to choose from.
var ErrNoItems = errors.New("no items to pick from")

// PickerItem is one entry shown in the interactive picker.
type PickerItem struct {
	Label    string // primary text, e.g. a deployment name
	SubLabel string // secondary dimmed text, e.g. the contract address
	Value    string // returned on selection
}

func (it PickerItem) haystack() string {
	if it.SubLabel == "" {
		return it.Label
	}
	return it.Label + " " + it.SubLabel
}

type pickerSource []PickerItem

func (s pickerSource) String(i int) string { return strings.ToLower(s[i].haystack()) }
func (s pickerSource) Len() int            { return len(s) }

// FilterItems returns the items matching query, best match first. An empty
// query returns items unchanged.
func FilterItems(query string, items []PickerItem) []PickerItem {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return items
	}
	matches := fuzzy.FindFrom(query, pickerSource(items))
	out := make([]PickerItem, 0, len(matches))
	for _, m := range matches {
		out = append(out, items[m.Index])
	}
	return out
}

// pickerModel is the Bubble Tea model for the filterable list picker.
type pickerModel struct {
	title    string
	items    []PickerItem
	query    string
	visible  []PickerItem
	cursor   int
	selected *PickerItem
	quitting bool
}

func newPickerModel(title string, items []PickerItem) pickerModel {
	return pickerModel{title: title, items: items, visible: items}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) refilter() pickerModel {
	m.visible = FilterItems(m.query, m.items)
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
	return m
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		if len(m.visible) > 0 {
			item := m.visible[m.cursor]
			m.selected = &item
			return m, tea.Quit
		}
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.query = string(r[:len(r)-1])
			m = m.refilter()
		}
	case tea.KeySpace:
		m.query += " "
		m.cursor = 0
		m = m.refilter()
	case tea.KeyRunes:
		m.query += string(key.Runes)
		m.cursor = 0
		m = m.refilter()
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(StyleTitle.Render("  "+m.title) + "\n")
	sb.WriteString("  " + StyleMeta.Render("filter: ") + StyleValue.Render(m.query) + StyleMeta.Render("▏") + "\n\n")

	if len(m.visible) == 0 {
		sb.WriteString(StyleMeta.Render("    no matches") + "\n")
	}
	for i, item := range m.visible {
		prefix := "    "
		if i == m.cursor {
			prefix = "  ▸ "
		}
		line := prefix + StyleValue.Render(item.Label)
		if item.SubLabel != "" {
			line += "  " + StyleMeta.Render(item.SubLabel)
		}
		if i == m.cursor {
			line = StyleSelected.Render(line)
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(StyleMeta.Render("  [ type ] filter   [ ↑↓ ] navigate   [ Enter ] select   [ Esc ] cancel") + "\n")
	return sb.String()
}

// PickItem runs an interactive picker and returns the selected item's Value.
// Returns ("", nil) if the user cancels.
func PickItem(title string, items []PickerItem) (string, error) {
	if len(items) == 0 {
		return "", ErrNoItems
	}

	p := tea.NewProgram(newPickerModel(title, items), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}

	fm := final.(pickerModel)
	if fm.quitting || fm.selected == nil {
		return "", nil
	}
	return fm.selected.Value, nil
}
