// Package debugger is the interactive single-step console started by
// "vm --debug" (SPEC_FULL.md §A "CLI"). It replaces the teacher VM's
// execProgramDebugMode bufio.Reader REPL loop — which parsed "n"/"next",
// "r"/"run", and "b"/"break <line>" lines by hand off os.Stdin — with a
// bubbletea program offering the same three commands plus a live view
// of the six interpreter registers, the step count, the armed
// breakpoints and the command log. The active context's stack is not
// shown.
package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rochus-keller/st80vm/internal/interp"
	"github.com/rochus-keller/st80vm/internal/memory"
)

const (
	consoleWidth  = 80
	consoleHeight = 14
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// Run starts the debugger console over vm and blocks until the user
// leaves it with Esc or Ctrl-C; a halted interpreter keeps the console
// open.
func Run(vm *interp.Interpreter) error {
	p := tea.NewProgram(newModel(vm))
	_, err := p.Run()
	return err
}

type model struct {
	vm          *interp.Interpreter
	input       string
	history     []string
	breakpoints map[int]bool
	stepCount   int
	halted      bool
	lastErr     error

	log viewport.Model
}

func newModel(vm *interp.Interpreter) model {
	return model{
		vm:          vm,
		breakpoints: make(map[int]bool),
		log:         viewport.New(consoleWidth, consoleHeight),
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}
	switch keyMsg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		m = m.execute(strings.TrimSpace(m.input))
		m.input = ""
		m.refreshLog()
		return m, nil
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	case tea.KeyRunes:
		m.input += string(keyMsg.Runes)
		return m, nil
	}
	return m, nil
}

// refreshLog pushes the command history into the scrollback viewport and
// keeps the view pinned to its most recent line.
func (m *model) refreshLog() {
	m.log.SetContent(strings.Join(m.history, "\n"))
	m.log.GotoBottom()
}

// execute dispatches one command line, following the same verb set the
// teacher's debug loop recognized: next/n single-steps, run/r free-runs
// until a breakpoint or halt, break/b <ip> arms a breakpoint on an
// instruction-pointer value.
func (m model) execute(line string) model {
	if line == "" {
		return m
	}
	m.history = append(m.history, "> "+line)
	fields := strings.Fields(line)
	verb := fields[0]

	switch verb {
	case "n", "next", "step":
		m = m.step()
	case "r", "run":
		m = m.run()
	case "b", "break":
		if len(fields) < 2 {
			m.history = append(m.history, "usage: break <ip>")
			break
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			m.history = append(m.history, "not a number: "+fields[1])
			break
		}
		m.breakpoints[n] = true
		m.history = append(m.history, fmt.Sprintf("breakpoint set at %d", n))
	case "q", "quit":
		m.halted = true
	default:
		m.history = append(m.history, "unknown command: "+verb)
	}
	return m
}

func (m model) step() model {
	if m.halted {
		return m
	}
	if err := m.vm.Step(); err != nil {
		m.lastErr = err
		m.halted = true
		m.history = append(m.history, "halted: "+err.Error())
		return m
	}
	m.stepCount++
	return m
}

// run free-steps until a breakpoint's instruction pointer is reached or
// the interpreter halts, capped so a runaway loop can't hang the UI.
func (m model) run() model {
	const maxSteps = 1_000_000
	for i := 0; i < maxSteps && !m.halted; i++ {
		ip := m.currentIP()
		if i > 0 && m.breakpoints[ip] {
			m.history = append(m.history, fmt.Sprintf("stopped at breakpoint %d", ip))
			return m
		}
		m = m.step()
	}
	return m
}

func (m model) currentIP() int {
	active, err := m.vm.ActiveContextIP()
	if err != nil {
		return -1
	}
	return active
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("st80vm debugger"))
	b.WriteString("\n\n")

	regs := m.vm.RegisterSnapshot()
	b.WriteString(headerStyle.Render("registers") + "\n")
	for _, r := range []struct {
		name string
		oop  memory.OOP
	}{
		{"ActiveContext", regs.ActiveContext},
		{"HomeContext", regs.HomeContext},
		{"Method", regs.Method},
		{"Receiver", regs.Receiver},
		{"MessageSelector", regs.MessageSelector},
		{"NewMethod", regs.NewMethod},
	} {
		fmt.Fprintf(&b, "  %-16s %04x\n", r.name, uint16(r.oop))
	}
	fmt.Fprintf(&b, "\n%s %d\n", dimStyle.Render("steps:"), m.stepCount)

	if len(m.breakpoints) > 0 {
		b.WriteString(dimStyle.Render("breakpoints: "))
		for bp := range m.breakpoints {
			fmt.Fprintf(&b, "%d ", bp)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.log.View())
	b.WriteString("\n")

	if m.halted {
		b.WriteString("\n" + errStyle.Render("interpreter halted, press esc to exit"))
	}

	b.WriteString("\n\n> " + m.input)
	return b.String()
}
