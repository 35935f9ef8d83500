package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	controller "github.com/koscakluka/foundry-core/core"
	"github.com/koscakluka/foundry-core/core/protocols"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Start the agents and follow the run",
	Long: `Start a new agent run for a session and print its activity as it
arrives. The command returns when the run halts for human review, when
the stream closes or on interrupt. A closed stream does not mean the run
finished; check the session with 'foundry show'.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	approveDraftFile string
	approveWatch     bool
)

var approveCmd = &cobra.Command{
	Use:   "approve <session-id>",
	Short: "Submit a reviewed draft for a halted session",
	Long: `Submit the reviewed draft of a session halted for human review.
The draft is read from --draft-file ("-" reads stdin). With --watch the
run is resumed and followed like 'foundry watch'.`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(approveCmd)

	approveCmd.Flags().StringVarP(&approveDraftFile, "draft-file", "f", "", `file holding the reviewed draft, "-" for stdin`)
	approveCmd.Flags().BoolVarP(&approveWatch, "watch", "w", false, "resume the run and follow it")
	_ = approveCmd.MarkFlagRequired("draft-file")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ctrl, err := newController(ctx)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.Select(ctx, protocols.SessionID(args[0])); err != nil {
		return err
	}
	if err := ctrl.StartAgents(ctx); err != nil {
		return err
	}
	return follow(ctx, cmd.OutOrStdout(), ctrl)
}

func runApprove(cmd *cobra.Command, args []string) error {
	draft, err := readDraft(cmd.InOrStdin(), approveDraftFile)
	if err != nil {
		return err
	}
	id := protocols.SessionID(args[0])

	if !approveWatch {
		client, err := newClient()
		if err != nil {
			return err
		}
		session, err := client.ApproveDraft(cmd.Context(), id, draft)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Approved draft for session %s (%s)\n", session.ID, session.Status)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ctrl, err := newController(ctx)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.Select(ctx, id); err != nil {
		return err
	}
	if err := ctrl.ApproveAndResume(ctx, draft); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Approved draft for session %s, resuming\n", id)
	return follow(ctx, cmd.OutOrStdout(), ctrl)
}

func readDraft(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read draft: %w", err)
	}
	return string(data), nil
}

// follow prints the activity of the current run until it halts, its
// stream closes or ctx is done.
func follow(ctx context.Context, out io.Writer, ctrl *controller.Controller) error {
	updates := make(chan struct{}, 1)
	unsubscribe := ctrl.Subscribe(func(controller.View) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	var (
		printed  int
		streamID string
	)
	for {
		view := ctrl.View()
		if view.StreamID != streamID {
			streamID = view.StreamID
			printed = 0
		}
		for _, entry := range view.Activity[min(printed, len(view.Activity)):] {
			fmt.Fprintf(out, "%s  %-12s %s\n", entry.ReceivedAt.Format(time.TimeOnly), entry.Agent, entry.Message)
		}
		printed = len(view.Activity)

		switch {
		case view.State == controller.StateHaltedForHuman:
			fmt.Fprintf(out, "\nRun halted for human review. Draft:\n\n%s\n", view.Draft)
			fmt.Fprintf(out, "\nApprove with: foundry approve %s --draft-file <file>\n", view.SelectedID)
			return nil
		case view.StreamEnded:
			if final, ok := view.Blackboard.FinalProtocol(); ok {
				fmt.Fprintf(out, "\nFinal protocol:\n\n%s\n", final)
			}
			if view.LastError != "" {
				return errors.New(view.LastError)
			}
			fmt.Fprintln(out, "\nStream closed.")
			return nil
		case view.StreamID == "" && view.LastError != "":
			return errors.New(view.LastError)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-updates:
		}
	}
}
