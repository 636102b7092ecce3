package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// commands.go - Ex 风格命令行 (:goto 0x100, :columns 8 ...) 与 Tab 补全

// exCommand 命令表条目
type exCommand struct {
	Name   string
	Alias  []string
	Detail string
}

var exCommands = []exCommand{
	{Name: "goto", Alias: []string{"g"}, Detail: "goto <offset>  跳到偏移 (十进制或 0x 十六进制)"},
	{Name: "columns", Alias: []string{"cols"}, Detail: "columns <n>  每行字组数"},
	{Name: "word", Detail: "word <n>  每组字节数"},
	{Name: "reload", Alias: []string{"r"}, Detail: "reload  重新读取文件"},
	{Name: "theme", Detail: "theme <chroma style>  切换配色"},
	{Name: "help", Detail: "help  显示命令列表"},
	{Name: "quit", Alias: []string{"q"}, Detail: "quit  退出"},
}

// resolveCommand 名称或别名 → 规范名
func resolveCommand(name string) (string, bool) {
	for _, c := range exCommands {
		if c.Name == name {
			return c.Name, true
		}
		for _, a := range c.Alias {
			if a == name {
				return c.Name, true
			}
		}
	}
	return "", false
}

// completeCommand 返回以 prefix 开头的命令名（已排序）
func completeCommand(prefix string) []string {
	lower := strings.ToLower(prefix)
	var out []string
	for _, c := range exCommands {
		if strings.HasPrefix(c.Name, lower) {
			out = append(out, c.Name)
		}
	}
	sort.Strings(out)
	return out
}

// parseOffset 支持 0x / 0o / 0b 前缀
func parseOffset(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad offset %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative offset %d", v)
	}
	return v, nil
}

// handleCommandMode 处理命令模式下的按键
func (m Model) handleCommandMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		// 取消命令，回到普通模式
		m.commandMode = false
		m.commandBuffer = ""
		m.statusMsg = ""

	case tea.KeyEnter:
		cmd := m.executeCommand()
		m.commandMode = false
		m.commandBuffer = ""
		return m, cmd

	case tea.KeyBackspace:
		if len(m.commandBuffer) > 0 {
			m.commandBuffer = m.commandBuffer[:len(m.commandBuffer)-1]
		} else {
			// 缓冲区已空，回到普通模式
			m.commandMode = false
			m.statusMsg = ""
		}

	case tea.KeyTab:
		// 只补全第一个单词
		if strings.Contains(m.commandBuffer, " ") {
			break
		}
		matches := completeCommand(m.commandBuffer)
		switch len(matches) {
		case 0:
			m.statusMsg = "⚠ 无匹配命令"
		case 1:
			m.commandBuffer = matches[0] + " "
			m.statusMsg = ""
		default:
			m.statusMsg = strings.Join(matches, "  ")
		}

	case tea.KeySpace:
		m.commandBuffer += " "

	case tea.KeyRunes:
		m.commandBuffer += string(msg.Runes)
	}

	return m, nil
}

// executeCommand 执行命令缓冲区中的命令
func (m *Model) executeCommand() tea.Cmd {
	line := strings.TrimSpace(m.commandBuffer)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		m.statusMsg = ""
		return nil
	}

	// 纯数字等价于 :goto
	if off, err := parseOffset(fields[0]); err == nil && len(fields) == 1 {
		m.gotoOffset(off)
		return nil
	}

	name, ok := resolveCommand(fields[0])
	if !ok {
		m.statusMsg = fmt.Sprintf("⚠ 未知命令: %s", fields[0])
		return nil
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch name {
	case "quit":
		return tea.Quit

	case "goto":
		off, err := parseOffset(arg)
		if err != nil {
			m.statusMsg = "⚠ " + err.Error()
			return nil
		}
		m.gotoOffset(off)

	case "columns", "word":
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || n < 1 {
			m.statusMsg = fmt.Sprintf("⚠ %s 需要正整数", name)
			return nil
		}
		g := m.cursor.Geometry()
		if name == "columns" {
			g.Columns = n
		} else {
			g.WordSize = n
		}
		m.cursor.SetGeometry(g)
		m.geometryChanged()
		g = m.cursor.Geometry()
		m.statusMsg = fmt.Sprintf("✓ %d x %d", g.Columns, g.WordSize)

	case "reload":
		m.reload()

	case "theme":
		if arg == "" {
			m.statusMsg = "theme: " + m.theme.name
			return nil
		}
		m.theme = newTheme(arg)
		m.statusMsg = "✓ theme: " + m.theme.name

	case "help":
		names := make([]string, 0, len(exCommands))
		for _, c := range exCommands {
			names = append(names, ":"+c.Name)
		}
		m.statusMsg = "命令: " + strings.Join(names, " ")
	}
	return nil
}
