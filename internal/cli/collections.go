package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage vector store collections",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollectionsList(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollectionsDelete(cmd.Context(), args[0])
		},
	})
	return cmd
}

func runCollectionsList(ctx context.Context) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.close()

	names, err := d.store.GetCollections(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No collections")
		return nil
	}
	for _, name := range names {
		info, err := d.store.GetCollectionInfo(ctx, name)
		if err != nil {
			fmt.Printf("%s\n", name)
			continue
		}
		fmt.Printf("%s\t%d points\tdim %d\t%s\n", info.Name, info.Points, info.VectorSize, info.Status)
	}
	return nil
}

func runCollectionsDelete(ctx context.Context, name string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.store.DeleteCollection(ctx, name); err != nil {
		return err
	}
	fmt.Printf("Deleted collection %s\n", name)
	return nil
}
