package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/router-for-me/aigateway/internal/config"
	"github.com/router-for-me/aigateway/internal/gateway"
)

// runTUI opens an admin dashboard over the pool state this process would
// serve requests from, were it running as the gateway: one row per pool
// entry, showing health, usage count, and last error. A supplemented
// feature exercising the bubbletea/bubbles/lipgloss/go-humanize dependencies,
// which no curated source file otherwise uses.
func runTUI(argv []string, log *logrus.Logger) {
	configPath := config.ExtractConfigPath(argv)
	cfg, err := config.Load(configPath, argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	registry, err := gateway.Build(cfg, log.WithField("component", "tui"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build provider registry:", err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(newTUIModel(registry, cfg.KnownProviders)).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "tui error:", err)
		os.Exit(1)
	}
}

type tickMsg time.Time

type tuiModel struct {
	registry       *gateway.Registry
	knownProviders []string
	table          table.Model
}

func newTUIModel(registry *gateway.Registry, knownProviders []string) tuiModel {
	columns := []table.Column{
		{Title: "Provider", Width: 20},
		{Title: "UUID", Width: 14},
		{Title: "Status", Width: 10},
		{Title: "Uses", Width: 8},
		{Title: "Errors", Width: 8},
		{Title: "Last used", Width: 16},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(poolRows(registry, knownProviders)),
		table.WithFocused(false),
		table.WithHeight(20),
	)
	t.SetStyles(tableStyles())
	return tuiModel{registry: registry, knownProviders: knownProviders, table: t}
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderBottom(true)
	s.Selected = lipgloss.NewStyle()
	return s
}

// poolRows renders one row per pool entry, plus a placeholder row for any
// provider listed in config.json's provider_pools (config.KnownProviders)
// that the registry built zero dialable entries for.
func poolRows(registry *gateway.Registry, knownProviders []string) []table.Row {
	var rows []table.Row
	seen := make(map[string]bool, len(knownProviders))
	for _, p := range registry.Pools.Providers() {
		entries := registry.Pools.Entries(p)
		seen[string(p)] = true
		for _, e := range entries {
			status := "healthy"
			if !e.IsHealthy {
				status = "unhealthy"
			}
			last := "never"
			if e.LastUsed != nil {
				last = humanize.Time(*e.LastUsed)
			}
			rows = append(rows, table.Row{
				string(p), e.UUID, status,
				fmt.Sprintf("%d", e.UsageCount),
				fmt.Sprintf("%d", e.ErrorCount),
				last,
			})
		}
	}
	for _, p := range knownProviders {
		if seen[p] {
			continue
		}
		rows = append(rows, table.Row{p, "-", "no entries", "0", "0", "never"})
	}
	return rows
}

func (m tuiModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		m.table.SetRows(poolRows(m.registry, m.knownProviders))
		return m, tick()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

var titleStyle = lipgloss.NewStyle().Bold(true).Underline(true).MarginBottom(1)

func (m tuiModel) View() string {
	title := titleStyle.Render("aigateway pool status")
	return lipgloss.JoinVertical(lipgloss.Left, title, m.table.View(), "\npress q to quit")
}
