package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/goliatone/go-userwizard/pkg/entity"
	"github.com/goliatone/go-userwizard/pkg/wizard"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

var userColumns = []string{"ID", "User ID", "Username", "DOB", "Age", "Gender", "Languages"}

// ShowUsers prints users as a table. An empty list prints a placeholder.
func (r *Runner) ShowUsers(users []entity.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(users) == 0 {
		fmt.Fprintln(r.out, "No users found")
		return
	}
	fmt.Fprint(r.out, userTable(users))
}

// ConfirmDelete asks before a user is deleted.
func (r *Runner) ConfirmDelete(ctx context.Context) (bool, error) {
	return r.driver.Confirm(ctx, ConfirmConfig{Message: wizard.MessageConfirmDelete})
}

func userTable(users []entity.User) string {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			u.ID,
			u.UserID,
			u.Username,
			u.DOB,
			strconv.Itoa(u.Age),
			string(u.Gender),
			u.LanguagesSummary(),
		})
	}

	widths := make([]int, len(userColumns))
	for i, title := range userColumns {
		widths[i] = lipgloss.Width(title)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	b.WriteString(renderRow(userColumns, widths, headerStyle))
	for _, row := range rows {
		b.WriteString(renderRow(row, widths, lipgloss.NewStyle()))
	}
	return b.String()
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = cellStyle.Width(widths[i] + 2).Render(style.Render(cell))
	}
	return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " ") + "\n"
}
