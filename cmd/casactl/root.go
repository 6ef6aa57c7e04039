package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"casa-backend/internal/apiclient"
)

type globalFlags struct {
	server  string
	token   string
	guestID string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "casactl",
		Short:         "Upload samples and read semen analysis reports",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.server, "server", envOr("CASA_SERVER", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().StringVar(&flags.token, "token", os.Getenv("CASA_TOKEN"), "bearer token")
	root.PersistentFlags().StringVar(&flags.guestID, "guest-id", os.Getenv("CASA_GUEST_ID"), "guest identity used when no token is set")

	root.AddCommand(
		newAnalyzeCmd(flags),
		newReportsCmd(flags),
		newReportCmd(flags),
		newChatCmd(flags),
		newMeCmd(flags),
		newLanguageCmd(flags),
	)
	return root
}

func (f *globalFlags) client() (*apiclient.Client, error) {
	if f.token == "" && f.guestID == "" {
		return nil, fmt.Errorf("set --token or --guest-id")
	}
	return apiclient.New(apiclient.Options{BaseURL: f.server, Token: f.token, GuestID: f.guestID}), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
