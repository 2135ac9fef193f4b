package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tkachdev/herostore/pkg/heroclient"
)

func defaultAPIURL() string {
	if v := os.Getenv("HEROSTORE_API_URL"); v != "" {
		return v
	}
	return "http://localhost:8080/api"
}

func newRootCmd() *cobra.Command {
	var (
		apiURL     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "heroctl",
		Short: "Heroctl manages superheroes and their images in a herostore server",
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultAPIURL(), "base URL of the herostore API")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	client := func() *heroclient.Client {
		return heroclient.New(apiURL)
	}

	cmd.AddCommand(
		newListCmd(client, &jsonOutput),
		newShowCmd(client, &jsonOutput),
		newCreateCmd(client, &jsonOutput),
		newUpdateCmd(client, &jsonOutput),
		newDeleteCmd(client),
		newImagesCmd(client, &jsonOutput),
	)

	return cmd
}
