package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tkachdev/herostore/pkg/heroclient"
)

func newImagesCmd(client clientFn, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Manage a superhero's images",
	}

	cmd.AddCommand(
		newImagesAddCmd(client, jsonOutput),
		newImagesRemoveCmd(client, jsonOutput),
		newImagesGetCmd(client),
	)

	return cmd
}

// stageAndCommit loads the given files into a staging session and commits
// them against the hero in one batch.
func stageAndCommit(cmd *cobra.Command, c *heroclient.Client, heroID string, paths []string) (*heroclient.CommitResult, error) {
	session := heroclient.NewStagingSession(c, nil)
	defer session.Discard()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if _, err := session.StageAdd(filepath.Base(path), data, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	return session.Commit(cmd.Context(), heroID)
}

func reportCommit(cmd *cobra.Command, result *heroclient.CommitResult) {
	for _, failure := range result.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", failure.Filename, failure.Err)
	}
}

func newImagesAddCmd(client clientFn, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "add <hero-id> <file>...",
		Short: "Upload and attach images",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client()
			result, err := stageAndCommit(cmd, c, args[0], args[1:])
			if err != nil {
				return err
			}
			reportCommit(cmd, result)

			hero, err := c.GetHero(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(hero)
			}
			return writeHero(hero)
		},
	}
}

func newImagesRemoveCmd(client clientFn, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <hero-id> <image-id>",
		Short: "Detach an image and delete its blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hero, err := client().RemoveImage(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(hero)
			}
			return writeHero(hero)
		},
	}
}

func newImagesGetCmd(client clientFn) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <hero-id> <image-id>",
		Short: "Download an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, contentType, err := client().DownloadImage(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			defer body.Close()

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			if _, err := io.Copy(out, body); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s)\n", output, contentType)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write image to file instead of stdout")

	return cmd
}
