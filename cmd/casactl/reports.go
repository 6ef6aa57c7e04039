package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"casa-backend/internal/analyses"
	"casa-backend/internal/chat"
)

func newReportsCmd(flags *globalFlags) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List your reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			items, err := client.Reports(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tTYPE\tCOUNT\tPROGRESSIVE\tNORMAL\tASSESSMENT")
			for _, s := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d%%\t%d%%\t%s\n",
					s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.MediaType, s.SpermCount,
					s.Motility.Progressive, s.NormalMorphology, s.OverallAssessment)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "report ID",
		Short: "Print one report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			report, err := client.Report(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newChatCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat ID MESSAGE...",
		Short: "Ask the medical assistant about a report",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			answer, err := client.Chat(cmd.Context(), chat.Question{
				AnalysisID: args[0],
				Message:    strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}

func newMeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the identity and analysis stats the server sees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			me, err := client.Me(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), me)
		},
	}
}

func newLanguageCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "language LANGUAGE",
		Short: "Set the language medical chat replies are written in",
		Long:  "Stores the reply language on your profile. Requires --token; guests have no profile.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			saved, err := client.SetChatLanguage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chat replies will be written in %s\n", saved)
			return nil
		},
	}
}

func printSummary(w io.Writer, s analyses.Summary, jobID string) {
	fmt.Fprintf(w, "report        %s\n", s.ID)
	fmt.Fprintf(w, "job           %s\n", jobID)
	fmt.Fprintf(w, "media         %s (%s)\n", s.OriginalFilename, s.MediaType)
	fmt.Fprintf(w, "sperm count   %d\n", s.SpermCount)
	fmt.Fprintf(w, "concentration %d\n", s.Concentration)
	fmt.Fprintf(w, "motility      progressive %d%%, non-progressive %d%%, immotile %d%%\n",
		s.Motility.Progressive, s.Motility.NonProgressive, s.Motility.Immotile)
	fmt.Fprintf(w, "morphology    normal %d%%\n", s.NormalMorphology)
	fmt.Fprintf(w, "assessment    %s\n", s.OverallAssessment)
}
