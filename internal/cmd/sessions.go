package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/koscakluka/foundry-core/core/protocols"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List known sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

var createCmd = &cobra.Command{
	Use:   "create <intent>",
	Short: "Create a session for an intent",
	Long: `Create a protocol-drafting session. The intent is free text and is
fixed once the session exists; multiple arguments are joined with spaces.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session with its drafts and blackboard",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var kickoffCmd = &cobra.Command{
	Use:   "kickoff <session-id>",
	Short: "Fire the backend kickoff trigger for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runKickoff,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(kickoffCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	sessions, err := client.ListSessions(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions.")
		return nil
	}
	writer := tabwriter.NewWriter(out, 2, 0, 3, ' ', 0)
	fmt.Fprintf(writer, "ID\tSTATUS\tUPDATED\tINTENT\n")
	for _, session := range sessions {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			session.ID, session.Status, formatTimestamp(session.UpdatedAt), session.Intent)
	}
	return writer.Flush()
}

func runCreate(cmd *cobra.Command, args []string) error {
	intent := strings.TrimSpace(strings.Join(args, " "))
	if intent == "" {
		return fmt.Errorf("intent must not be empty")
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	session, err := client.CreateSession(cmd.Context(), intent)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created session %s (%s)\n", session.ID, session.Status)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	id := protocols.SessionID(args[0])
	session, err := client.GetSession(cmd.Context(), id)
	if err != nil {
		return err
	}
	snapshot, err := client.GetBlackboard(cmd.Context(), id)
	if err != nil {
		return err
	}

	printSession(cmd.OutOrStdout(), session, snapshot)
	if err := session.ValidateDrafts(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	return nil
}

func runKickoff(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	if err := client.Kickoff(cmd.Context(), protocols.SessionID(args[0])); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Kicked off session %s\n", args[0])
	return nil
}

func printSession(out io.Writer, session protocols.Session, snapshot protocols.BlackboardSnapshot) {
	fmt.Fprintf(out, "Session %s\n", session.ID)
	fmt.Fprintf(out, "  Intent:    %s\n", session.Intent)
	fmt.Fprintf(out, "  Status:    %s\n", session.Status)
	fmt.Fprintf(out, "  Iteration: %d\n", session.Iteration)
	fmt.Fprintf(out, "  Safety:    %s\n", formatScore(session.SafetyScore))
	fmt.Fprintf(out, "  Empathy:   %s\n", formatScore(session.EmpathyScore))
	fmt.Fprintf(out, "  Created:   %s\n", formatTimestamp(session.CreatedAt))
	fmt.Fprintf(out, "  Updated:   %s\n", formatTimestamp(session.UpdatedAt))
	if session.ThreadID != "" {
		fmt.Fprintf(out, "  Thread:    %s\n", session.ThreadID)
	}

	if len(session.Drafts) > 0 {
		fmt.Fprintf(out, "\nDrafts:\n")
		writer := tabwriter.NewWriter(out, 2, 0, 3, ' ', 0)
		fmt.Fprintf(writer, "  VERSION\tSAFETY\tEMPATHY\tCREATED\n")
		for _, draft := range session.Drafts {
			fmt.Fprintf(writer, "  %d\t%s\t%s\t%s\n",
				draft.VersionIndex, formatScore(draft.SafetyScore), formatScore(draft.EmpathyScore), formatTimestamp(draft.CreatedAt))
		}
		writer.Flush()
	}

	printText(out, "Latest draft", session.LatestDraft)
	printText(out, "Human-edited draft", session.HumanEditedDraft)
	printText(out, "Final protocol", session.FinalProtocol)

	if len(snapshot.State) > 0 {
		fmt.Fprintf(out, "\nBlackboard")
		if snapshot.CreatedAt != nil {
			fmt.Fprintf(out, " (%s)", formatTimestamp(*snapshot.CreatedAt))
		}
		fmt.Fprintf(out, ":\n")
		_ = writeJSON(out, snapshot.State)
	}
}

func printText(out io.Writer, label string, text *string) {
	if text == nil || *text == "" {
		return
	}
	fmt.Fprintf(out, "\n%s:\n%s\n", label, *text)
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *score)
}

func formatTimestamp(ts protocols.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
