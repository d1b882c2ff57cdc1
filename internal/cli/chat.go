package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaot623/pagesmith/internal/domain"
	"github.com/xiaot623/pagesmith/internal/orchestrator"
	"github.com/xiaot623/pagesmith/internal/service"
	"github.com/xiaot623/pagesmith/internal/transport/http/client"
)

const chatHelp = `Type a request and press Enter. The first request is enhanced for review;
later requests modify the current page.
Commands:
  /confirm           generate from the enhanced request
  /edit <text>       replace the enhanced request before confirming
  /cancel            generate from your original request instead
  /retry             repeat the request that failed
  /show              print the current page
  /history           print the conversation
  /preview           open a preview frame and print its URL
  /import <file>     adopt an HTML file as the current page
  /export [file]     save the current page
  /deploy [name]     publish the current page (simulated)
  /new               start a new session
  /quit              exit`

func newChatCmd(a *app) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Build a page interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			r := &repl{
				client: c,
				out:    cmd.OutOrStdout(),
			}
			r.machine = orchestrator.New(c, sessionID, orchestrator.WithObserver(r.observe))
			return r.run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing session")
	return cmd
}

// repl drives an orchestrator.Machine from line input.
type repl struct {
	client  *client.Client
	machine *orchestrator.Machine
	out     io.Writer
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	if err := r.machine.Resume(ctx); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	fmt.Fprintf(r.out, "Session %s\n", r.machine.SessionID())
	if !r.machine.Artifact().Empty() {
		fmt.Fprintf(r.out, "Resumed with a page of %d bytes.\n", len(r.machine.Artifact()))
	}
	fmt.Fprintln(r.out, chatHelp)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			fmt.Fprintln(r.out, "\nInterrupted")
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			fmt.Fprintln(r.out, "Bye!")
			return nil
		}
		if err := r.handle(ctx, input); err != nil {
			fmt.Fprintf(r.out, "Error: %s\n", describe(err))
		}
	}
}

func (r *repl) handle(ctx context.Context, input string) error {
	command, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	before := r.machine.Artifact()

	var err error
	switch command {
	case "/confirm":
		err = r.machine.Confirm(ctx)
	case "/cancel":
		err = r.machine.Cancel(ctx)
	case "/edit":
		if err = r.machine.EditEnhanced(arg); err == nil {
			fmt.Fprintln(r.out, "Enhanced request updated. /confirm to generate.")
		}
		return err
	case "/retry":
		err = r.machine.Retry(ctx)
	case "/show":
		fmt.Fprintln(r.out, r.machine.Artifact().String())
		return nil
	case "/history":
		r.printTranscript()
		return nil
	case "/preview":
		return r.preview(ctx)
	case "/import":
		return r.importFile(arg)
	case "/export":
		return r.export(ctx, arg)
	case "/deploy":
		resp, err := r.machine.Deploy(ctx, arg)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Deployed to %s (simulated)\n", resp.URL)
		return nil
	case "/new":
		if err = r.machine.Reset(); err == nil {
			fmt.Fprintf(r.out, "Session %s\n", r.machine.SessionID())
		}
		return err
	default:
		if strings.HasPrefix(command, "/") {
			return fmt.Errorf("unknown command %s", command)
		}
		err = r.machine.Submit(ctx, input)
	}
	if _, failed := r.machine.State().(orchestrator.Failed); err != nil && !failed {
		return err
	}
	r.report(before)
	return nil
}

// report describes where the last turn left the machine.
func (r *repl) report(before domain.Document) {
	switch s := r.machine.State().(type) {
	case orchestrator.ReviewingEnhanced:
		fmt.Fprintf(r.out, "\nEnhanced request:\n%s\n\n/confirm to generate, /edit <text> to change it, /cancel to use your original request.\n", s.Enhanced)
	case orchestrator.Failed:
		fmt.Fprintf(r.out, "Error: %s\n/retry to try again.\n", describe(s.Err))
	default:
		if doc := r.machine.Artifact(); doc != before {
			fmt.Fprintf(r.out, "Page updated (%d bytes). /show, /preview or /export it.\n", len(doc))
		}
	}
}

func (r *repl) observe(_, to orchestrator.State) {
	switch to.(type) {
	case orchestrator.Enhancing:
		fmt.Fprintln(r.out, "Enhancing your request...")
	case orchestrator.Generating:
		fmt.Fprintln(r.out, "Generating your page...")
	case orchestrator.Modifying:
		fmt.Fprintln(r.out, "Making targeted changes to your web page...")
	}
}

func (r *repl) printTranscript() {
	for _, line := range orchestrator.Display(r.machine.Transcript()) {
		switch line.Role {
		case domain.RoleUser:
			fmt.Fprintf(r.out, "you: %s\n", line.Text)
		default:
			fmt.Fprintf(r.out, "[%s] %s\n", line.State, line.Text)
		}
	}
}

func (r *repl) preview(ctx context.Context) error {
	doc := r.machine.Artifact()
	if doc.Empty() {
		return errors.New("no page yet")
	}
	frame, err := r.client.Preview(ctx, domain.PreviewRequest{
		SessionID:   r.machine.SessionID(),
		HTMLContent: doc.String(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Preview: %s%s\n", r.client.BaseURL(), frame.URL)
	return nil
}

func (r *repl) importFile(path string) error {
	if path == "" {
		return errors.New("usage: /import <file>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	outcome, err := r.machine.Import(string(data))
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Imported %s (%s).\n", path, outcome)
	return nil
}

func (r *repl) export(ctx context.Context, path string) error {
	doc := r.machine.Artifact()
	if doc.Empty() {
		return errors.New("no page yet")
	}
	if path == "" {
		path = service.ExportFilename
	}
	body, err := r.client.Export(ctx, domain.ExportRequest{HTMLContent: doc.String()})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved %s\n", path)
	return nil
}

// describe renders err for the terminal.
func describe(err error) string {
	if errors.Is(err, domain.ErrBusy) {
		return "still working on the previous request"
	}
	return err.Error()
}
