package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mkraev/alkoteka-crawler/internal/catalog"
)

// newSeedsCmd creates the 'seeds' subcommand, which resolves the category
// list and prints the first-page listing URLs without fetching anything.
func newSeedsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seeds",
		Short: "Prints the resolved first-page listing URLs",
		Long: `Resolves the category seed list (from the seed file, or the built-in
defaults when it is missing) and prints the first-page listing URL for
each category. Useful for verifying endpoint configuration before a
crawl.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			seeds := resolveSeeds(appInstance.Config().Source.SeedsFile, appInstance.Logger())
			for _, url := range catalog.BuildListingURLs(appInstance.Source(), seeds) {
				cmd.Println(url)
			}
			return nil
		},
	}
}
