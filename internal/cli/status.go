package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/codectx/internal/vectorstore"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the vector store and index status for this workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.close()

	fmt.Printf("Workspace:  %s\n", d.rootAbs)
	fmt.Printf("Provider:   %s\n", d.provider.Name())
	if d.provider.Available(ctx) {
		fmt.Println("            available")
	} else {
		fmt.Println("            unavailable")
	}

	healthy := d.store.HealthCheck(ctx, true)
	fmt.Printf("Store:      %s (%s)\n", d.cfg.VectorStore.Backend, healthState(healthy))
	if !healthy {
		return nil
	}

	name := d.cfg.VectorStore.Collection
	info, err := d.store.GetCollectionInfo(ctx, name)
	if errors.Is(err, vectorstore.ErrNotFound) {
		fmt.Printf("Collection: %s (not indexed yet, run 'codectx index')\n", name)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Collection: %s\n", info.Name)
	fmt.Printf("            %d points, dim %d, %s\n", info.Points, info.VectorSize, info.Status)
	return nil
}

func healthState(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "unreachable"
}
