package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/teemow/inboxbrief/internal/tools/calendar_tools"
	"github.com/teemow/inboxbrief/internal/tools/common"
	"github.com/teemow/inboxbrief/internal/tools/gmail_tools"
)

const menuText = `
Choose an action:
1. List emails
2. Read email
3. Create draft
4. Upcoming events
5. Exit
`

func newMenuCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive menu over the inbox and calendar tools",
		Long: `Show a numbered menu to list emails, read one, create a draft or list
upcoming events, until 5 or end of input.

When stdin is not a terminal the menu runs as a script and stops at the first
failing action.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = session.Close() }()

			m := &menu{
				session:  session,
				in:       bufio.NewScanner(cmd.InOrStdin()),
				out:      cmd.OutOrStdout(),
				scripted: !isTerminal(cmd.InOrStdin()),
			}
			return m.run(cmd)
		},
	}
}

// isTerminal reports whether r is a terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type menu struct {
	session  *cliSession
	in       *bufio.Scanner
	out      io.Writer
	scripted bool
}

// ask prints prompt and reads one line. ok is false at end of input.
func (m *menu) ask(prompt string) (line string, ok bool) {
	_, _ = fmt.Fprint(m.out, prompt)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

// askLimit reads an entry count. Empty input means the configured default.
func (m *menu) askLimit(prompt string) (int, bool, error) {
	line, ok := m.ask(prompt)
	if !ok {
		return 0, false, nil
	}
	if line == "" {
		return common.UseDefaultLimit, true, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, true, fmt.Errorf("invalid number %q", line)
	}
	return n, true, nil
}

func (m *menu) run(cmd *cobra.Command) error {
	for {
		_, _ = fmt.Fprint(m.out, menuText)
		choice, ok := m.ask("Enter your choice: ")
		if !ok || choice == "5" {
			return nil
		}

		var (
			tool string
			args map[string]interface{}
			err  error
		)

		switch choice {
		case "1":
			tool = gmail_tools.ToolListInboxMessages
			args, ok, err = m.emailArgs()
		case "2":
			tool = gmail_tools.ToolGetMessage
			var id string
			id, ok = m.ask("Enter the message ID: ")
			args = map[string]interface{}{"message_id": id}
		case "3":
			tool = gmail_tools.ToolCreateDraft
			args, ok = m.draftArgs()
		case "4":
			tool = calendar_tools.ToolListUpcomingEvents
			var n int
			n, ok, err = m.askLimit("Enter the number of events to fetch (leave empty for the default): ")
			args = map[string]interface{}{"limit": float64(n)}
		default:
			_, _ = fmt.Fprintln(m.out, "Invalid choice. Please try again.")
			continue
		}

		if !ok {
			return nil
		}
		if err == nil {
			var out string
			out, err = m.session.callTool(cmd.Context(), tool, args)
			if err == nil {
				_, _ = fmt.Fprintln(m.out, strings.TrimRight(out, "\n"))
				continue
			}
		}

		if m.scripted {
			return err
		}
		_, _ = fmt.Fprintln(m.out, err)
	}
}

func (m *menu) emailArgs() (map[string]interface{}, bool, error) {
	n, ok, err := m.askLimit("Enter the number of emails to fetch (-1 for default): ")
	if !ok || err != nil {
		return nil, ok, err
	}
	label, ok := m.ask("Enter the label ID (INBOX, UNREAD, etc., leave empty for INBOX): ")
	if !ok {
		return nil, false, nil
	}
	return map[string]interface{}{"limit": float64(n), "label_id": label}, true, nil
}

func (m *menu) draftArgs() (map[string]interface{}, bool) {
	prompts := []struct{ key, prompt string }{
		{"reply_to_message_id", "Reply to message ID (leave empty for a new message): "},
		{"to", "Enter recipient email address: "},
		{"subject", "Enter subject: "},
		{"body", "Enter body content: "},
	}

	args := make(map[string]interface{}, len(prompts))
	for _, p := range prompts {
		v, ok := m.ask(p.prompt)
		if !ok {
			return nil, false
		}
		args[p.key] = v
	}
	return args, true
}
