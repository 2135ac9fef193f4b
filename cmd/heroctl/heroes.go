package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkachdev/herostore/pkg/heroclient"
)

type clientFn func() *heroclient.Client

func newListCmd(client clientFn, jsonOutput *bool) *cobra.Command {
	var (
		page  int
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List superheroes",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := client().ListHeroes(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(result)
			}
			return writeHeroList(result)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 5, "heroes per page")

	return cmd
}

func newShowCmd(client clientFn, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one superhero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hero, err := client().GetHero(cmd.Context(), args[0])
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

func heroInputFlags(cmd *cobra.Command, input *heroclient.HeroInput) {
	cmd.Flags().StringVar(&input.Nickname, "nickname", "", "hero nickname")
	cmd.Flags().StringVar(&input.RealName, "real-name", "", "hero real name")
	cmd.Flags().StringVar(&input.OriginDescription, "origin", "", "origin description")
	cmd.Flags().StringVar(&input.Superpowers, "superpowers", "", "superpowers")
	cmd.Flags().StringVar(&input.CatchPhrase, "catch-phrase", "", "catch phrase")
}

func newCreateCmd(client clientFn, jsonOutput *bool) *cobra.Command {
	var (
		input  heroclient.HeroInput
		images []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a superhero",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client()
			hero, err := c.CreateHero(cmd.Context(), input)
			if err != nil {
				return err
			}

			if len(images) > 0 {
				result, err := stageAndCommit(cmd, c, hero.ID, images)
				if err != nil {
					return err
				}
				reportCommit(cmd, result)
				hero, err = c.GetHero(cmd.Context(), hero.ID)
				if err != nil {
					return err
				}
			}

			if *jsonOutput {
				return writeJSON(hero)
			}
			return writeHero(hero)
		},
	}

	heroInputFlags(cmd, &input)
	cmd.Flags().StringArrayVar(&images, "image", nil, "image file to attach (repeatable)")

	return cmd
}

func newUpdateCmd(client clientFn, jsonOutput *bool) *cobra.Command {
	var input heroclient.HeroInput

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a superhero's text fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hero, err := client().UpdateHero(cmd.Context(), args[0], input)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(hero)
			}
			return writeHero(hero)
		},
	}

	heroInputFlags(cmd, &input)

	return cmd
}

func newDeleteCmd(client clientFn) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a superhero and its images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().DeleteHero(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Superhero deleted successfully")
			return nil
		},
	}
}
