package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"todoapp/internal/app"
	"todoapp/internal/config"
	"todoapp/internal/storage"
	"todoapp/internal/todo"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeMetadata
	modeSearch
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	doneStyle     = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("#6b7280"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
)

type metaState struct {
	taskID      string
	title       string
	description string
	priority    string
	due         string
	category    string
	notes       string
	index       int
}

type Model struct {
	app        *app.App
	cfg        config.Config
	tasks      []todo.Task
	cursor     int
	mode       mode
	input      textinput.Model
	status     string
	statusErr  bool
	confirmDel bool
	pendingDel *todo.Task
	meta       *metaState
}

func New(a *app.App, cfg config.Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Task title"
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		app:    a,
		cfg:    cfg,
		status: "Press 'a' to add, space to toggle, 'd' to delete.",
		input:  ti,
		mode:   modeList,
	}
	m.refresh()
	return m
}

func Run(a *app.App, cfg config.Config) error {
	program := tea.NewProgram(New(a, cfg))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.meta != nil {
			return m.updateMetadataMode(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch m.mode {
	case modeAdd:
		return m.updateAddMode(key, msg)
	case modeSearch:
		return m.updateSearchMode(key, msg)
	}
	return m.updateListMode(key)
}

// refresh recomputes the view after any mutation or filter change.
func (m *Model) refresh() {
	m.tasks = m.app.View()
	m.cursor = clampCursor(m.cursor, len(m.tasks))
}

func (m *Model) report(action string, err error) {
	if err == nil {
		m.status = action
		m.statusErr = false
		return
	}
	m.statusErr = true
	var se *storage.StorageError
	if errors.As(err, &se) {
		m.status = fmt.Sprintf("%s, but saving failed: %v", action, se.Err)
		return
	}
	m.status = fmt.Sprintf("%s failed: %v", action, err)
}

func (m Model) ctx() context.Context {
	return context.Background()
}

func (m Model) current() (todo.Task, bool) {
	if len(m.tasks) == 0 {
		return todo.Task{}, false
	}
	return m.tasks[clampCursor(m.cursor, len(m.tasks))], true
}

func (m Model) updateAddMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.mode = modeList
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm:
		title := strings.TrimSpace(m.input.Value())
		if title == "" {
			m.status = "Title cannot be empty"
			return m, nil
		}
		draft := todo.TaskDraft{Title: title, Priority: todo.PriorityMedium}
		if f := m.app.Filters(); f.Category != todo.All && f.Category != "" {
			draft.Category = f.Category
		} else if cats := m.app.Repo().Categories(); len(cats) > 0 {
			draft.Category = cats[0].ID
		}
		task, err := m.app.Repo().AddTask(m.ctx(), draft)
		m.report("Added task", err)
		m.refresh()
		if task != nil {
			m.moveTo(task.ID)
		}
		m.input.SetValue("")
		m.input.Blur()
		m.mode = modeList
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, m.cfg.Keys.Confirm:
		m.mode = modeList
		m.input.Blur()
		m.input.Placeholder = "Task title"
		term := m.app.Filters().SearchTerm
		if term == "" {
			m.status = "Search cleared"
		} else {
			m.status = fmt.Sprintf("Searching %q: %d match(es)", term, len(m.tasks))
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		term := m.input.Value()
		m.app.UpdateFilters(todo.FilterPatch{SearchTerm: &term})
		m.refresh()
		return m, cmd
	}
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit
	case k.Down, "down":
		if len(m.tasks) == 0 {
			return m, nil
		}
		m.cursor = clampCursor(m.cursor+1, len(m.tasks))
	case k.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(m.tasks))
		}
	case k.Add:
		m.mode = modeAdd
		m.input.Placeholder = "Task title"
		m.input.SetValue("")
		m.input.Focus()
		m.status = "Add mode: type a title and press Enter"
	case k.Search:
		m.mode = modeSearch
		m.input.Placeholder = "Search title, description, notes"
		m.input.SetValue(m.app.Filters().SearchTerm)
		m.input.Focus()
		m.status = "Search: type to filter, Enter to keep, Esc to leave"
	case k.Toggle, "space":
		task, ok := m.current()
		if !ok {
			return m, nil
		}
		err := m.app.Repo().ToggleTaskCompletion(m.ctx(), task.ID)
		m.report("Toggled task", err)
		m.refresh()
	case k.Delete:
		task, ok := m.current()
		if !ok {
			return m, nil
		}
		m.confirmDel = true
		m.pendingDel = &task
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", task.Title)
	case k.Detail:
		task, ok := m.current()
		if !ok {
			m.status = "No tasks"
			return m, nil
		}
		m.status = m.describe(task)
	case k.Edit:
		task, ok := m.current()
		if !ok {
			m.status = "No tasks to edit"
			return m, nil
		}
		return m.startMetadataEdit(task)
	case k.Select:
		task, ok := m.current()
		if !ok {
			return m, nil
		}
		m.app.Repo().ToggleSelection(task.ID)
		m.status = fmt.Sprintf("%d selected", len(m.app.Repo().Selected()))
		m.cursor = clampCursor(m.cursor+1, len(m.tasks))
	case k.SelectAll:
		n := m.app.SelectAllVisible()
		m.status = fmt.Sprintf("%d selected", n)
	case k.ClearSelect:
		m.app.Repo().ClearSelection()
		m.status = "Selection cleared"
	case k.BatchDone:
		allDone := true
		for _, id := range m.app.Repo().Selected() {
			if t, ok := m.app.Repo().Task(id); ok && !t.Completed {
				allDone = false
				break
			}
		}
		n, err := m.app.BatchCompleteSelected(m.ctx(), !allDone)
		if n == 0 {
			m.status = "Nothing selected"
			return m, nil
		}
		if allDone {
			m.report(fmt.Sprintf("%d task(s) marked active", n), err)
		} else {
			m.report(fmt.Sprintf("%d task(s) completed", n), err)
		}
		m.refresh()
	case k.BatchDelete:
		n, err := m.app.BatchDeleteSelected(m.ctx())
		if n == 0 {
			m.status = "Nothing selected"
			return m, nil
		}
		m.report(fmt.Sprintf("%d task(s) deleted", n), err)
		m.refresh()
	case k.CycleSort:
		next := nextSort(m.app.Sort())
		m.app.SetSort(next)
		m.refresh()
		m.status = "Sorted by " + string(next)
	case k.CycleStatus:
		next := nextStatus(m.app.Filters().Status)
		m.app.UpdateFilters(todo.FilterPatch{Status: &next})
		m.refresh()
		m.status = "Showing " + string(next) + " tasks"
	case k.ClearFilters:
		m.app.ClearFilters()
		m.refresh()
		m.status = "Filters cleared"
	}
	return m, nil
}

func (m *Model) moveTo(id string) {
	for i, t := range m.tasks {
		if t.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m Model) describe(t todo.Task) string {
	info := fmt.Sprintf("%s • %s • %s", t.Title, humanDone(t.Completed), t.Priority)
	if name := m.categoryName(t.Category); name != "" {
		info += " • " + name
	}
	if t.DueDate != nil {
		info += " • due:" + t.DueDate.Format("2006-01-02")
	}
	if t.Description != "" {
		info += " • " + t.Description
	}
	return info
}

func (m Model) categoryName(id string) string {
	if c, ok := m.app.Repo().Category(id); ok {
		return c.Name
	}
	return ""
}

func (m Model) View() string {
	var b strings.Builder

	header := "Todo"
	if p, ok := m.app.Current(); ok {
		header += " • " + p.Name
	}
	f := m.app.Filters()
	header += fmt.Sprintf(" • %s • sort:%s", f.Status, m.app.Sort())
	if f.SearchTerm != "" {
		header += fmt.Sprintf(" • search:%q", f.SearchTerm)
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	if len(m.tasks) == 0 {
		b.WriteString("No tasks here. Press 'a' to add one.")
	} else {
		b.WriteString(m.renderTaskList())
	}

	b.WriteString("\n---\n")

	switch {
	case m.meta != nil:
		b.WriteString("Task editor (tab/shift+tab to move, enter to save/next, esc to cancel)")
		b.WriteString("\n\n")
		b.WriteString(m.renderMetaBox())
		b.WriteString("\n")
		b.WriteString("Field: " + m.currentMetaLabel())
		b.WriteString("\n")
		b.WriteString(m.input.View())
	case m.mode == modeAdd || m.mode == modeSearch:
		b.WriteString(m.input.View())
	default:
		b.WriteString(m.renderMetadataPanel())
	}

	b.WriteString("\n\n")
	if m.statusErr {
		b.WriteString(errorStyle.Render(m.status))
	} else {
		b.WriteString(m.status)
	}
	b.WriteString("\n")
	b.WriteString(renderHelp(m.cfg.Keys))

	return b.String()
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		err := m.app.Repo().DeleteTask(m.ctx(), m.pendingDel.ID)
		m.report("Deleted task", err)
		m.refresh()
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	default:
		return m, nil
	}
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s toggle • %s delete • %s edit • %s select • %s all • %s batch done • %s batch delete • %s search • %s sort • %s status • %s quit",
		k.Up, k.Down, k.Add, "space", k.Delete, k.Edit, k.Select, k.SelectAll, k.BatchDone, k.BatchDelete, k.Search, k.CycleSort, k.CycleStatus, k.Quit)
}

func (m Model) renderTaskList() string {
	var b strings.Builder
	for i, t := range m.tasks {
		cursor := " "
		if m.cursor == i && m.mode == modeList {
			cursor = ">"
		}

		mark := " "
		if m.app.Repo().IsSelected(t.ID) {
			mark = selectedStyle.Render("*")
		}

		checkbox := "[ ]"
		title := t.Title
		if t.Completed {
			checkbox = "[x]"
			title = doneStyle.Render(title)
		}

		body := fmt.Sprintf("%s%s %s %s %s", cursor, mark, checkbox, priorityGlyph(t.Priority), title)
		if c, ok := m.app.Repo().Category(t.Category); ok {
			body += " " + lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render("#"+c.Name)
		}
		if t.DueDate != nil {
			body += " (" + t.DueDate.Format("Jan 2") + ")"
		}

		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}

func priorityGlyph(p todo.Priority) string {
	switch p {
	case todo.PriorityHigh:
		return "!!!"
	case todo.PriorityMedium:
		return " !!"
	default:
		return "  !"
	}
}

func (m Model) startMetadataEdit(t todo.Task) (tea.Model, tea.Cmd) {
	m.meta = &metaState{
		taskID:      t.ID,
		title:       t.Title,
		description: t.Description,
		priority:    string(t.Priority),
		due:         formatDate(t.DueDate),
		category:    m.categoryName(t.Category),
		notes:       t.Notes,
		index:       0,
	}
	m.input.SetValue(m.meta.currentValue())
	m.input.Placeholder = m.meta.currentLabel()
	m.input.Focus()
	m.mode = modeMetadata
	m.status = "Edit task: tab to move, enter to save/next, esc to cancel"
	return m, nil
}

func (m Model) updateMetadataMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.meta = nil
		m.mode = modeList
		m.input.Blur()
		m.status = "Edit cancelled"
		return m, nil
	case "tab", "down":
		m.meta.setCurrentValue(m.input.Value())
		m.meta.index = wrapIndex(m.meta.index+1, len(metaFields()))
		m.input.SetValue(m.meta.currentValue())
		m.input.Placeholder = m.meta.currentLabel()
		m.status = m.metaPrompt()
		return m, nil
	case "shift+tab", "up":
		m.meta.setCurrentValue(m.input.Value())
		m.meta.index = wrapIndex(m.meta.index-1, len(metaFields()))
		m.input.SetValue(m.meta.currentValue())
		m.input.Placeholder = m.meta.currentLabel()
		m.status = m.metaPrompt()
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		m.meta.setCurrentValue(m.input.Value())
		if m.meta.index >= len(metaFields())-1 {
			return m.saveMetadata()
		}
		m.meta.index++
		m.input.SetValue(m.meta.currentValue())
		m.input.Placeholder = m.meta.currentLabel()
		m.status = m.metaPrompt()
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) saveMetadata() (tea.Model, tea.Cmd) {
	ms := m.meta
	title := strings.TrimSpace(ms.title)
	if title == "" {
		m.status = "Title cannot be empty"
		return m, nil
	}
	priority, ok := todo.ParsePriority(ms.priority)
	if !ok {
		m.status = fmt.Sprintf("priority invalid: %q (high, medium, low)", ms.priority)
		return m, nil
	}
	due, err := parseDate(ms.due)
	if err != nil {
		m.status = fmt.Sprintf("due date invalid: %v", err)
		return m, nil
	}
	categoryID, ok := m.lookupCategory(ms.category)
	if !ok {
		m.status = fmt.Sprintf("unknown category %q", ms.category)
		return m, nil
	}

	patch := todo.TaskPatch{
		Title:       &title,
		Description: &ms.description,
		Priority:    &priority,
		Category:    &categoryID,
		Notes:       &ms.notes,
	}
	if due == nil {
		patch.ClearDueDate = true
	} else {
		patch.DueDate = due
	}
	err = m.app.Repo().UpdateTask(m.ctx(), ms.taskID, patch)
	m.meta = nil
	m.mode = modeList
	m.input.Blur()
	m.report("Task saved", err)
	m.refresh()
	m.moveTo(ms.taskID)
	return m, nil
}

// lookupCategory resolves a category by name, case-insensitively. An empty
// name means no category.
func (m Model) lookupCategory(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", true
	}
	for _, c := range m.app.Repo().Categories() {
		if strings.EqualFold(c.Name, name) {
			return c.ID, true
		}
	}
	return "", false
}

func metaFields() []string {
	return []string{"title", "description", "priority (high/medium/low)", "due date (YYYY-MM-DD)", "category", "notes"}
}

func (ms metaState) currentLabel() string {
	return metaFields()[ms.index]
}

func (ms metaState) currentValue() string {
	switch ms.index {
	case 0:
		return ms.title
	case 1:
		return ms.description
	case 2:
		return ms.priority
	case 3:
		return ms.due
	case 4:
		return ms.category
	case 5:
		return ms.notes
	default:
		return ""
	}
}

func (ms *metaState) setCurrentValue(v string) {
	switch ms.index {
	case 0:
		ms.title = v
	case 1:
		ms.description = v
	case 2:
		ms.priority = v
	case 3:
		ms.due = v
	case 4:
		ms.category = v
	case 5:
		ms.notes = v
	}
}

func (m Model) metaPrompt() string {
	if m.meta == nil {
		return ""
	}
	return fmt.Sprintf("Editing %s (field %d of %d). Enter to advance, Esc to cancel, tab to move.",
		m.meta.currentLabel(), m.meta.index+1, len(metaFields()))
}

func parseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func (m Model) currentMetaLabel() string {
	if m.meta == nil {
		return ""
	}
	return m.meta.currentLabel()
}

func (m Model) renderMetaBox() string {
	if m.meta == nil {
		return ""
	}
	fields := metaFields()
	values := []string{
		m.meta.title,
		m.meta.description,
		m.meta.priority,
		m.meta.due,
		m.meta.category,
		m.meta.notes,
	}
	var b strings.Builder
	for i, name := range fields {
		prefix := " "
		if i == m.meta.index {
			prefix = ">"
		}
		val := values[i]
		if strings.TrimSpace(val) == "" {
			val = "(empty)"
		}
		b.WriteString(fmt.Sprintf("%s %-26s : %s\n", prefix, name, val))
	}
	return b.String()
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func (m Model) renderMetadataPanel() string {
	t, ok := m.current()
	if !ok {
		return "No task selected"
	}
	var b strings.Builder
	b.WriteString("Details\n")
	b.WriteString(fmt.Sprintf("Title       : %s\n", t.Title))
	b.WriteString(fmt.Sprintf("Done        : %s\n", humanDone(t.Completed)))
	b.WriteString(fmt.Sprintf("Priority    : %s\n", t.Priority))
	b.WriteString(fmt.Sprintf("Category    : %s\n", emptyPlaceholder(m.categoryName(t.Category))))
	b.WriteString(fmt.Sprintf("Due         : %s\n", emptyPlaceholder(formatDate(t.DueDate))))
	b.WriteString(fmt.Sprintf("Description : %s\n", emptyPlaceholder(t.Description)))
	b.WriteString(fmt.Sprintf("Notes       : %s\n", emptyPlaceholder(t.Notes)))
	return b.String()
}

func emptyPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(empty)"
	}
	return v
}

func nextSort(cur todo.SortOption) todo.SortOption {
	for i, opt := range todo.SortOptions {
		if opt == cur {
			return todo.SortOptions[(i+1)%len(todo.SortOptions)]
		}
	}
	return todo.SortOptions[0]
}

func nextStatus(cur todo.StatusFilter) todo.StatusFilter {
	switch cur {
	case todo.StatusAll:
		return todo.StatusActive
	case todo.StatusActive:
		return todo.StatusCompleted
	default:
		return todo.StatusAll
	}
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}

func humanDone(done bool) string {
	if done {
		return "done"
	}
	return "pending"
}
