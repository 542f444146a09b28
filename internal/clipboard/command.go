package clipboard

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Tool is a pair of external programs that read and write the clipboard.
type Tool struct {
	Paste []string
	Copy  []string
}

// Command shells out to whichever clipboard tool is installed, e.g. xclip or pbpaste.
type Command struct {
	tool Tool
	run  func(args []string, stdin string) (string, error)
}

// Tools lists the candidates for goos in order of preference.
func Tools(goos string, wayland bool) []Tool {
	switch goos {
	case "darwin":
		return []Tool{{Paste: []string{"pbpaste"}, Copy: []string{"pbcopy"}}}
	case "windows":
		return []Tool{{
			Paste: []string{"powershell.exe", "-NoProfile", "-Command", "Get-Clipboard -Raw"},
			Copy:  []string{"powershell.exe", "-NoProfile", "-Command", "$input | Set-Clipboard"},
		}}
	default:
		tools := []Tool{
			{Paste: []string{"xclip", "-selection", "clipboard", "-o"}, Copy: []string{"xclip", "-selection", "clipboard"}},
			{Paste: []string{"xsel", "--clipboard", "--output"}, Copy: []string{"xsel", "--clipboard", "--input"}},
		}
		if wayland {
			tools = append([]Tool{{Paste: []string{"wl-paste", "--no-newline"}, Copy: []string{"wl-copy"}}}, tools...)
		}
		return tools
	}
}

func NewCommand() (*Command, error) {
	for _, tool := range Tools(runtime.GOOS, os.Getenv("WAYLAND_DISPLAY") != "") {
		if _, err := exec.LookPath(tool.Paste[0]); err == nil {
			return &Command{tool: tool, run: runTool}, nil
		}
	}
	return nil, fmt.Errorf("%w: no clipboard tool found in PATH", ErrUnavailable)
}

func (c *Command) Name() string {
	return c.tool.Paste[0]
}

func (c *Command) Read() (string, error) {
	out, err := c.run(c.tool.Paste, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRead, err)
	}
	return out, nil
}

func (c *Command) Write(text string) error {
	if _, err := c.run(c.tool.Copy, text); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

func runTool(args []string, stdin string) (string, error) {
	cmd := exec.Command(args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", args[0], err, msg)
		}
		return "", fmt.Errorf("%s: %w", args[0], err)
	}
	return stdout.String(), nil
}
