package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"casa-backend/internal/analyses"
	"casa-backend/internal/uploadflow"
)

func newAnalyzeCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Upload a video or photo and run the analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			file, err := localFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			me, err := client.Me(ctx)
			if err != nil {
				return fmt.Errorf("resolve identity: %w", err)
			}

			progress := cmd.ErrOrStderr()
			m := uploadflow.New(uploadflow.Config{
				Store:        client,
				Orchestrator: client,
				UserID:       me.UserID,
				OnChange:     func(s uploadflow.Snapshot) { printSnapshot(progress, s) },
			})
			defer m.Close()

			if err := m.SelectMedia(file); err != nil {
				return err
			}
			report, err := m.StartAnalysis(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			printSummary(cmd.OutOrStdout(), analyses.Summarize(report), report.KoyebJobID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return cmd
}

func localFile(path string) (uploadflow.MediaFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return uploadflow.MediaFile{}, err
	}
	if info.IsDir() {
		return uploadflow.MediaFile{}, fmt.Errorf("%s is a directory", path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return uploadflow.MediaFile{}, fmt.Errorf("detect type: %w", err)
	}
	return uploadflow.MediaFile{
		Name:     filepath.Base(path),
		MimeType: mt.String(),
		Size:     info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func printSnapshot(w io.Writer, s uploadflow.Snapshot) {
	switch s.Status {
	case uploadflow.StatusIdle:
		if s.ReadyToStart() {
			fmt.Fprintf(w, "ready: %s (%s)\n", s.FileName, s.MediaType)
		}
	case uploadflow.StatusUploading:
		fmt.Fprintf(w, "uploading %3d%%\n", s.UploadProgress)
	case uploadflow.StatusProcessing:
		fmt.Fprintf(w, "processing: %s\n", s.StageLabel)
	case uploadflow.StatusCompleted:
		fmt.Fprintf(w, "completed: report %s (job %s)\n", s.ReportID, s.ExternalJobID)
	case uploadflow.StatusError:
		fmt.Fprintf(w, "error: %v\n", s.Err)
	}
}
