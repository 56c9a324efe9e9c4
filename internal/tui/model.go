package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/tagstamp/internal/catalog"
	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/layout"
	"github.com/roach88/tagstamp/internal/model"
)

const (
	minColumnWidth = 18
	// header, blank, blank, footer
	chromeHeight = 4
)

// Controller is the part of the engine the palette drives.
type Controller interface {
	Click(templateID string, count int) bool
	SelectTemplate(id string) bool
	Toggle() bool
	Deactivate() bool
	State() engine.State
}

// StateMsg carries a published engine state into the program.
type StateMsg engine.State

// CatalogChangedMsg asks the palette to re-read the catalog.
type CatalogChangedMsg struct{}

type mode int

const (
	modeBrowse mode = iota
	modeConfirmDelete
	modeRename
)

// Model is the bubbletea model of the palette.
type Model struct {
	ctx     context.Context
	catalog *catalog.Catalog
	ctrl    Controller

	keys     keyMap
	renderer *lipgloss.Renderer
	styles   styles
	input    textinput.Model

	width, height int
	params        layout.Params

	entries []model.Entry
	columns [][]model.Entry
	lead    int // separators stripped from the front of entries
	col     int
	row     int

	state      engine.State
	mode       mode
	reordering bool
	status     string
}

// Option configures a Model.
type Option func(*Model)

// WithRenderer builds the styles from r instead of the default renderer.
func WithRenderer(r *lipgloss.Renderer) Option {
	return func(m *Model) {
		m.renderer = r
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(m *Model) {
		m.width, m.height = width, height
	}
}

// New creates a palette over cat, driving ctrl.
func New(ctx context.Context, cat *catalog.Catalog, ctrl Controller, opts ...Option) *Model {
	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = 120

	m := &Model{
		ctx:      ctx,
		catalog:  cat,
		ctrl:     ctrl,
		keys:     newKeyMap(),
		renderer: lipgloss.DefaultRenderer(),
		input:    in,
		width:    80,
		height:   24,
		params:   layout.DefaultParams,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.styles = newStyles(m.renderer)
	m.state = ctrl.State()
	m.reload()
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case StateMsg:
		m.state = engine.State(msg)
		return m, nil
	case CatalogChangedMsg:
		m.reload()
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeRename:
			return m.updateRename(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	if m.reordering && !key.Matches(msg, m.keys.moveUp, m.keys.moveDown) {
		m.finishReorder()
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.up):
		m.step(-1)
	case key.Matches(msg, m.keys.down):
		m.step(1)
	case key.Matches(msg, m.keys.left):
		m.jump(-1)
	case key.Matches(msg, m.keys.right):
		m.jump(1)
	case key.Matches(msg, m.keys.apply):
		m.click(1)
	case key.Matches(msg, m.keys.copy):
		m.click(2)
	case key.Matches(msg, m.keys.paste):
		m.click(3)
	case key.Matches(msg, m.keys.arm):
		m.click(4)
	case key.Matches(msg, m.keys.armSticky):
		m.click(5)
	case key.Matches(msg, m.keys.toggle):
		if t := m.selected(); t != nil {
			m.ctrl.SelectTemplate(t.ID)
		}
		m.busy(m.ctrl.Toggle())
	case key.Matches(msg, m.keys.deactivate):
		m.busy(m.ctrl.Deactivate())
	case key.Matches(msg, m.keys.moveUp):
		m.move(-1)
	case key.Matches(msg, m.keys.moveDown):
		m.move(1)
	case key.Matches(msg, m.keys.remove):
		if m.current() != nil {
			m.mode = modeConfirmDelete
			m.status = fmt.Sprintf("delete %s? y to confirm", m.describe(m.current()))
		}
	case key.Matches(msg, m.keys.separator):
		m.insertSeparator()
	case key.Matches(msg, m.keys.rename):
		if t := m.selected(); t != nil {
			m.mode = modeRename
			m.input.SetValue(t.Name)
			m.input.CursorEnd()
			return m, m.input.Focus()
		}
	}
	return m, nil
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if !key.Matches(msg, m.keys.confirm) {
		m.status = "delete cancelled"
		return m, nil
	}
	index := m.catalogIndex()
	if index < 0 {
		return m, nil
	}
	if _, err := m.catalog.Delete(index); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.save()
	m.reloadAt(index)
	return m, nil
}

func (m *Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.submit):
		m.mode = modeBrowse
		m.input.Blur()
		if t := m.selected(); t != nil {
			if err := m.catalog.Rename(t.ID, m.input.Value()); err != nil {
				m.status = err.Error()
				return m, nil
			}
			m.save()
			m.reload()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// current returns the entry under the cursor, or nil for an empty palette.
func (m *Model) current() model.Entry {
	if m.col >= len(m.columns) || m.row >= len(m.columns[m.col]) {
		return nil
	}
	return m.columns[m.col][m.row]
}

// selected returns the template under the cursor, or nil.
func (m *Model) selected() *model.Template {
	return model.AsTemplate(m.current())
}

func (m *Model) describe(e model.Entry) string {
	if t := model.AsTemplate(e); t != nil {
		return t.Label()
	}
	return "separator"
}

func (m *Model) click(count int) {
	t := m.selected()
	if t == nil {
		return
	}
	m.busy(m.ctrl.Click(t.ID, count))
}

func (m *Model) busy(accepted bool) {
	if !accepted {
		m.status = "busy"
	}
}

// flat returns the cursor position in the displayed order.
func (m *Model) flat() int {
	n := m.row
	for c := 0; c < m.col && c < len(m.columns); c++ {
		n += len(m.columns[c])
	}
	return n
}

// visible returns the number of displayed entries.
func (m *Model) visible() int {
	n := 0
	for _, column := range m.columns {
		n += len(column)
	}
	return n
}

// catalogIndex maps the cursor to an index into the catalog.
func (m *Model) catalogIndex() int {
	if m.current() == nil {
		return -1
	}
	return m.lead + m.flat()
}

// setFlat moves the cursor to the n-th displayed entry, clamped.
func (m *Model) setFlat(n int) {
	m.col, m.row = 0, 0
	if total := m.visible(); n >= total {
		n = total - 1
	}
	if n < 0 {
		return
	}
	for c, column := range m.columns {
		if n < len(column) {
			m.col, m.row = c, n
			return
		}
		n -= len(column)
	}
}

func (m *Model) step(delta int) {
	m.setFlat(max(m.flat()+delta, 0))
}

func (m *Model) jump(delta int) {
	c := m.col + delta
	if c < 0 || c >= len(m.columns) || len(m.columns[c]) == 0 {
		return
	}
	m.col = c
	m.row = min(m.row, len(m.columns[c])-1)
}

func (m *Model) move(delta int) {
	from := m.catalogIndex()
	to := from + delta
	if from < 0 || to < 0 || to >= len(m.entries) {
		return
	}
	if err := m.catalog.Move(from, to); err != nil {
		m.status = err.Error()
		return
	}
	m.reordering = true
	m.reloadAt(to)
}

func (m *Model) finishReorder() {
	m.reordering = false
	saved, err := m.catalog.FinishReorder(m.ctx)
	switch {
	case err != nil:
		m.status = err.Error()
	case saved:
		m.status = "order saved"
	}
}

func (m *Model) insertSeparator() {
	index := m.catalogIndex()
	if index < 0 {
		return
	}
	if err := m.catalog.Insert(index+1, model.Separator); err != nil {
		m.status = err.Error()
		return
	}
	m.save()
	m.reloadAt(index)
}

func (m *Model) save() {
	if err := m.catalog.Save(m.ctx); err != nil {
		m.status = err.Error()
	}
}

// Finish persists a pending reorder. Run calls it after the program exits.
func (m *Model) Finish() {
	if m.reordering {
		m.finishReorder()
	}
}

// resize repartitions the same entries and keeps the cursor on the same
// entry.
func (m *Model) resize(width, height int) {
	cur, n := m.current(), m.flat()
	m.width, m.height = width, height
	m.relayout()
	if model.AsTemplate(cur) != nil {
		if col, row, ok := layout.Locate(m.columns, cur); ok {
			m.col, m.row = col, row
			return
		}
	}
	m.setFlat(n)
}

// reload re-reads the catalog, keeping the cursor on the same template when
// it still exists.
func (m *Model) reload() {
	index := m.catalogIndex()
	if t := m.selected(); t != nil {
		m.entries = m.catalog.Entries()
		m.relayout()
		if i := indexOf(m.entries, t.ID); i >= 0 {
			index = i
		}
		m.setFlat(index - m.lead)
		return
	}
	m.reloadAt(index)
}

// reloadAt re-reads the catalog and puts the cursor on catalog index.
func (m *Model) reloadAt(index int) {
	m.entries = m.catalog.Entries()
	m.relayout()
	m.setFlat(index - m.lead)
}

func (m *Model) relayout() {
	cols := layout.ColumnsFor(m.width, minColumnWidth)
	m.params.Columns = cols
	m.params.ViewportHeight = max(m.height-chromeHeight, 1)
	m.columns = layout.Partition(m.entries, m.params)

	m.lead = 0
	for m.lead < len(m.entries) && model.IsSeparator(m.entries[m.lead]) {
		m.lead++
	}
}

func indexOf(entries []model.Entry, id string) int {
	for i, e := range entries {
		if t := model.AsTemplate(e); t != nil && t.ID == id {
			return i
		}
	}
	return -1
}
