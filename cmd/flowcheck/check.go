package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/getflowcheck/flowcheck/pkg/bundle"
)

var checkCmd = &cobra.Command{
	Use:   "check <bundle.json>",
	Short: "Validate a bundle file without importing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	doc, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	b, err := bundle.Validate(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	fmt.Printf("bundle ok (version %s, exported %s)\n", b.Metadata.Version, b.Metadata.ExportedAt.Format("2006-01-02 15:04:05 MST"))
	for _, t := range bundle.OrderedTypes {
		if !b.Has(t) {
			continue
		}
		count := 0
		switch t {
		case bundle.TypeFlowConfigs:
			count = len(*b.FlowConfigs)
		case bundle.TypeQuestionSets:
			count = len(*b.QuestionSets)
		case bundle.TypeTags:
			count = len(*b.Tags)
		case bundle.TypeTests:
			count = len(*b.Tests)
		case bundle.TypeRuns:
			count = len(*b.Runs)
		}
		fmt.Printf("  %-13s %d\n", t, count)
	}
	return nil
}
