package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/tkachdev/herostore/pkg/heroclient"
)

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeHeroList(page *heroclient.HeroPage) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNICKNAME\tREAL NAME\tIMAGES")
	for _, hero := range page.Superheroes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", hero.ID, hero.Nickname, hero.RealName, len(hero.Images))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("page %d/%d (%d total)\n", page.Page, page.TotalPages, page.Total)
	return nil
}

func writeHero(hero *heroclient.Hero) error {
	fmt.Printf("ID:          %s\n", hero.ID)
	fmt.Printf("Nickname:    %s\n", hero.Nickname)
	fmt.Printf("Real name:   %s\n", hero.RealName)
	fmt.Printf("Origin:      %s\n", hero.OriginDescription)
	fmt.Printf("Superpowers: %s\n", hero.Superpowers)
	fmt.Printf("Catchphrase: %s\n", hero.CatchPhrase)
	fmt.Printf("Created:     %s\n", hero.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:     %s\n", hero.UpdatedAt.Format("2006-01-02 15:04:05"))
	if len(hero.Images) == 0 {
		fmt.Println("Images:      none")
		return nil
	}
	fmt.Println("Images:")
	for _, img := range hero.Images {
		fmt.Printf("  %s  %s (%s)\n", img.FileID, img.Filename, img.ContentType)
	}
	return nil
}
