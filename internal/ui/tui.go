package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sema-sh/sema/internal/search"
)

// Searcher is the slice of the search service the interface needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) ([]*search.Result, error)
}

const (
	// searchDebounce is how long typing must pause before a search fires.
	searchDebounce = 150 * time.Millisecond

	// resultLimit caps interactive searches.
	resultLimit = 50

	// resultsPanelPercent is the width share of the result list; the
	// preview pane takes the rest.
	resultsPanelPercent = 30

	// resultItemHeight is lines per result entry: name, info, separator.
	resultItemHeight = 3
)

type focusArea int

const (
	focusInput focusArea = iota
	focusResults
	focusPreview
)

// Messages.
type debounceMsg struct{ seq int }

type resultsMsg struct {
	seq     int
	results []*search.Result
	err     error
}

// Model is the bubbletea model for the interactive search interface.
type Model struct {
	searcher Searcher
	root     string
	styles   Styles

	input    textinput.Model
	preview  viewport.Model
	previews *PreviewCache

	results      []*search.Result
	selected     int
	scrollOffset int
	focus        focusArea

	width    int
	height   int
	seq      int
	lastSent string
	errText  string
	quitting bool
}

// NewModel builds the initial model. root is the absolute indexed root,
// used to resolve result paths for the preview pane.
func NewModel(searcher Searcher, root string, noColor bool) *Model {
	ti := textinput.New()
	ti.Placeholder = "type to search"
	ti.Prompt = "> "
	ti.Focus()

	m := &Model{
		searcher: searcher,
		root:     root,
		styles:   GetStyles(noColor),
		input:    ti,
		preview:  viewport.New(0, 0),
		previews: NewPreviewCache(DefaultPreviewCacheSize),
		width:    80,
		height:   24,
	}
	m.resizePanes()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizePanes()
		return m, nil

	case debounceMsg:
		if msg.seq != m.seq {
			return m, nil // superseded by later keystrokes
		}
		return m, m.runSearch(m.input.Value(), msg.seq)

	case resultsMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		m.results = msg.results
		m.selected = 0
		m.scrollOffset = 0
		if len(m.results) > 0 {
			m.loadPreview()
		} else {
			m.preview.SetContent("")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.focus {
	case focusInput:
		return m.handleInputKey(msg)
	case focusResults:
		return m.handleResultsKey(msg)
	case focusPreview:
		return m.handlePreviewKey(msg)
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.input.Value() == "" {
			m.quitting = true
			return m, tea.Quit
		}
		m.input.SetValue("")
		m.seq++
		m.results = nil
		m.errText = ""
		m.preview.SetContent("")
		return m, nil

	case "enter", "down", "tab":
		if len(m.results) > 0 {
			m.focus = focusResults
			m.input.Blur()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	if v := m.input.Value(); v != m.lastSent {
		m.lastSent = v
		m.seq++
		seq := m.seq
		return m, tea.Batch(cmd, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
			return debounceMsg{seq: seq}
		}))
	}
	return m, cmd
}

func (m *Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "esc", "left", "h", "/":
		m.focus = focusInput
		m.input.Focus()
		return m, textinput.Blink

	case "enter", "right", "l", "tab":
		m.focus = focusPreview
		return m, nil

	case "up", "k":
		if m.selected > 0 {
			m.selected--
			m.clampScroll()
			m.loadPreview()
		}
		return m, nil

	case "down", "j":
		if m.selected < len(m.results)-1 {
			m.selected++
			m.clampScroll()
			m.loadPreview()
		}
		return m, nil

	case "g", "home":
		m.selected = 0
		m.clampScroll()
		m.loadPreview()
		return m, nil

	case "G", "end":
		if n := len(m.results); n > 0 {
			m.selected = n - 1
			m.clampScroll()
			m.loadPreview()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handlePreviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "esc", "left", "h":
		m.focus = focusResults
		return m, nil

	case "tab":
		m.focus = focusInput
		m.input.Focus()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)
	return m, cmd
}

func (m *Model) runSearch(query string, seq int) tea.Cmd {
	return func() tea.Msg {
		results, err := m.searcher.Search(context.Background(), query, search.Options{
			Limit:       resultLimit,
			GroupByFile: true,
		})
		return resultsMsg{seq: seq, results: results, err: err}
	}
}

// resizePanes recomputes pane dimensions from the window size.
func (m *Model) resizePanes() {
	m.input.Width = m.width - 6
	m.preview.Width = m.previewWidth() - 4
	m.preview.Height = m.panelHeight() - 2
	if m.preview.Width < 0 {
		m.preview.Width = 0
	}
	if m.preview.Height < 0 {
		m.preview.Height = 0
	}
}

func (m *Model) resultsWidth() int {
	w := m.width * resultsPanelPercent / 100
	if w < 24 {
		w = 24
	}
	return w
}

func (m *Model) previewWidth() int {
	w := m.width - m.resultsWidth()
	if w < 20 {
		w = 20
	}
	return w
}

// panelHeight is the height of the upper panes: total minus the input
// box and the status bar.
func (m *Model) panelHeight() int {
	h := m.height - 4
	if h < 6 {
		h = 6
	}
	return h
}

func (m *Model) resultsPerPage() int {
	n := (m.panelHeight() - 2) / resultItemHeight
	if n < 1 {
		n = 1
	}
	return n
}

// clampScroll keeps the selection inside the visible window.
func (m *Model) clampScroll() {
	perPage := m.resultsPerPage()
	if m.selected < m.scrollOffset {
		m.scrollOffset = m.selected
	}
	if m.selected >= m.scrollOffset+perPage {
		m.scrollOffset = m.selected - perPage + 1
	}
}

// loadPreview fills the preview pane with the selected result's file,
// scrolled to the chunk's first line.
func (m *Model) loadPreview() {
	if m.selected >= len(m.results) {
		return
	}
	r := m.results[m.selected]
	path := r.Chunk.FilePath

	content, ok := m.previews.Get(path)
	if !ok {
		data, err := os.ReadFile(filepath.Join(m.root, filepath.FromSlash(path)))
		if err != nil {
			m.preview.SetContent(m.styles.Error.Render("cannot read " + path + ": " + err.Error()))
			return
		}
		content = string(data)
		m.previews.Put(path, content)
	}

	m.preview.SetContent(m.numberLines(content))
	offset := r.Chunk.StartLine - 1
	if offset < 0 {
		offset = 0
	}
	m.preview.SetYOffset(offset)
}

// numberLines prefixes each line with its 1-based number.
func (m *Model) numberLines(content string) string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	width := len(fmt.Sprintf("%d", len(lines)))
	var b strings.Builder
	for i, line := range lines {
		b.WriteString(m.styles.Dim.Render(fmt.Sprintf("%*d │ ", width, i+1)))
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var upper string
	if len(m.results) == 0 {
		upper = m.viewEmpty()
	} else {
		upper = lipgloss.JoinHorizontal(lipgloss.Top, m.viewResults(), m.viewPreview())
	}

	return lipgloss.JoinVertical(lipgloss.Left, upper, m.viewInput(), m.viewStatusBar())
}

func (m *Model) viewEmpty() string {
	var msg string
	switch {
	case m.errText != "":
		msg = m.styles.Error.Render(m.errText)
	case m.input.Value() != "":
		msg = m.styles.Dim.Render("No results for " + m.input.Value())
	default:
		msg = m.styles.Dim.Render("Type a query to search the index.")
	}

	panel := m.styles.PanelBlurred.Width(m.width - 2).Height(m.panelHeight() - 2)
	return panel.Render(lipgloss.Place(m.width-6, m.panelHeight()-2, lipgloss.Center, lipgloss.Center, msg))
}

func (m *Model) viewResults() string {
	innerWidth := m.resultsWidth() - 4
	perPage := m.resultsPerPage()
	end := m.scrollOffset + perPage
	if end > len(m.results) {
		end = len(m.results)
	}

	var lines []string
	for i := m.scrollOffset; i < end; i++ {
		r := m.results[i]
		name := filepath.Base(r.Chunk.FilePath)
		if len(name) > innerWidth {
			name = name[:innerWidth]
		}
		if i == m.selected {
			lines = append(lines, m.styles.Selected.Render(name))
		} else {
			lines = append(lines, m.styles.FilePath.Render(name))
		}

		count := ""
		if r.TotalMatchesInFile > 1 {
			count = fmt.Sprintf("+%d", r.TotalMatchesInFile-1)
		}
		lineRange := fmt.Sprintf("L%d-%d", r.Chunk.StartLine, r.Chunk.EndLine)
		pad := innerWidth - len(count) - len(lineRange)
		if pad < 1 {
			pad = 1
		}
		lines = append(lines,
			m.styles.Count.Render(count)+strings.Repeat(" ", pad)+m.styles.LineInfo.Render(lineRange))
		lines = append(lines, m.styles.Dim.Render(strings.Repeat("─", innerWidth)))
	}

	panel := m.panelStyle(focusResults).Width(m.resultsWidth() - 2).Height(m.panelHeight() - 2)
	title := m.styles.Header.Render(fmt.Sprintf(" Results (%d) ", len(m.results)))
	return lipgloss.JoinVertical(lipgloss.Left, title, panel.Render(strings.Join(lines, "\n")))
}

func (m *Model) viewPreview() string {
	title := " Preview "
	if m.selected < len(m.results) {
		title = " " + m.results[m.selected].Chunk.FilePath + " "
	}

	panel := m.panelStyle(focusPreview).Width(m.previewWidth() - 2).Height(m.panelHeight() - 2)
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(title),
		panel.Render(m.preview.View()))
}

func (m *Model) viewInput() string {
	return m.panelStyle(focusInput).Width(m.width - 2).Render(m.input.View())
}

func (m *Model) viewStatusBar() string {
	if m.errText != "" && len(m.results) > 0 {
		return m.styles.Error.Render(m.errText)
	}

	var hint string
	switch m.focus {
	case focusInput:
		hint = "enter: results  esc: clear/quit  ctrl+c: quit"
	case focusResults:
		hint = "j/k: move  enter: preview  esc: search  q: quit"
	case focusPreview:
		hint = "j/k: scroll  esc: results  q: quit"
	}
	return m.styles.StatusBar.Render(hint)
}

func (m *Model) panelStyle(area focusArea) lipgloss.Style {
	if m.focus == area {
		return m.styles.PanelFocused
	}
	return m.styles.PanelBlurred
}

// Run starts the interactive interface and blocks until the user quits.
func Run(ctx context.Context, searcher Searcher, root string, noColor bool) error {
	m := NewModel(searcher, root, noColor)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

var _ tea.Model = (*Model)(nil)
