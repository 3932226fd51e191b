package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rnshah9/root/pkg/graph"
	"github.com/rnshah9/root/pkg/modelio"
	"github.com/rnshah9/root/pkg/norm"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// newInspectCmd creates the inspect command: an interactive browser over
// the unfolded graph.
func newInspectCmd() *cobra.Command {
	var normSet []string

	cmd := &cobra.Command{
		Use:   "inspect MODEL",
		Short: "Browse the unfolded graph interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := modelio.ReadFile(args[0])
			if err != nil {
				return err
			}
			g, err := modelio.ToGraph(model)
			if err != nil {
				return err
			}
			if err := g.Validate(); err != nil {
				return err
			}

			sess, err := norm.Open(g, model.Top, graph.Canonical(normSet))
			if err != nil {
				return err
			}
			defer sess.Close()

			m := newNodeBrowserModel(g, sess)
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().StringSliceVarP(&normSet, "normset", "n", nil, "observables to normalize over (comma separated)")
	return cmd
}

// =============================================================================
// nodeBrowserModel - Interactive node browser
// =============================================================================

// nodeRow is one entry in the browser list.
type nodeRow struct {
	id      string
	kind    string
	normSet string
	flags   string
}

// nodeBrowserModel is the bubbletea model for browsing the unfolded graph.
type nodeBrowserModel struct {
	graph  *graph.Graph
	rows   []nodeRow
	cursor int
	height int
	offset int
	detail bool
}

func newNodeBrowserModel(g *graph.Graph, sess *norm.Session) nodeBrowserModel {
	var rows []nodeRow
	for _, n := range g.Nodes() {
		ns := sess.NormSet(n.ID)
		var flags []string
		if n.SelfNormalized {
			flags = append(flags, "selfnorm")
		}
		if n.IsSynthetic() {
			flags = append(flags, "synthetic")
		}
		normStr := ""
		if len(ns) > 0 {
			normStr = ns.String()
		}
		rows = append(rows, nodeRow{
			id:      n.ID,
			kind:    n.Kind.String(),
			normSet: normStr,
			flags:   strings.Join(flags, ","),
		})
	}
	return nodeBrowserModel{graph: g, rows: rows, height: 15}
}

func (m nodeBrowserModel) Init() tea.Cmd {
	return nil
}

func (m nodeBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.detail {
				m.detail = false
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			if !m.detail && m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if !m.detail && m.cursor < len(m.rows)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter":
			m.detail = !m.detail
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 6
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m nodeBrowserModel) View() string {
	if m.detail {
		return m.detailView()
	}
	return m.listView()
}

func (m nodeBrowserModel) listView() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Unfolded Graph"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.rows) {
		end = len(m.rows)
	}

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, r.id, r.kind, r.normSet, r.flags})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Node", "Kind", "Norm", "Flags").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.offset+row == m.cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.rows))))

	return b.String()
}

func (m nodeBrowserModel) detailView() string {
	r := m.rows[m.cursor]
	var b strings.Builder

	b.WriteString(StyleTitle.Render(r.id))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("esc back  q quit"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  kind:  %s\n", StyleValue.Render(r.kind)))
	if r.normSet != "" {
		b.WriteString(fmt.Sprintf("  norm:  %s\n", StyleHighlight.Render(r.normSet)))
	}
	if r.flags != "" {
		b.WriteString(fmt.Sprintf("  flags: %s\n", StyleValue.Render(r.flags)))
	}

	b.WriteString("\n  " + StyleTitle.Render("servers") + "\n")
	servers := m.graph.Servers(r.id)
	if len(servers) == 0 {
		b.WriteString(listDimStyle.Render("    (none)") + "\n")
	}
	for _, e := range servers {
		edge := iconArrow
		if !e.Value {
			edge = iconArrow + " (shape)"
		}
		b.WriteString(fmt.Sprintf("    %s %s\n", listDimStyle.Render(edge), StyleValue.Render(e.To)))
	}

	b.WriteString("\n  " + StyleTitle.Render("clients") + "\n")
	clients := m.graph.Clients(r.id)
	if len(clients) == 0 {
		b.WriteString(listDimStyle.Render("    (none)") + "\n")
	}
	for _, c := range clients {
		b.WriteString(fmt.Sprintf("    %s %s\n", listDimStyle.Render("←"), StyleValue.Render(c)))
	}

	return b.String()
}
