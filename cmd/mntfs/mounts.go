package main

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/marmos91/mntfs/pkg/mtab"
	"github.com/marmos91/mntfs/pkg/mtab/proc"
)

// newMountsCommand lists the mounts the server would expose, without
// starting it. Useful for checking what a client will see.
func newMountsCommand() *cobra.Command {
	var (
		pid    string
		offset uint64
	)

	cmd := &cobra.Command{
		Use:   "mounts",
		Short: "List the mounts the export would contain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMounts(cmd.Context(), pid, offset)
		},
	}

	cmd.Flags().StringVar(&pid, "pid", proc.DefaultPID,
		"procfs pid entry whose mount namespace to read")
	cmd.Flags().Uint64Var(&offset, "offset", mtab.DefaultIDOffset,
		"offset between mount ids and entry identifiers")

	return cmd
}

func runMounts(ctx context.Context, pid string, offset uint64) error {
	if ctx == nil {
		ctx = context.Background()
	}

	view, err := mtab.New(proc.NewResolver(pid), proc.NewTable(pid), mtab.Options{
		IDOffset: offset,
	})
	if err != nil {
		return fmt.Errorf("build mount view: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Entry ID", "Target"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	var count int
	_, err = view.ReadDir(ctx, 0, func(de mtab.DirEntry) bool {
		target, linkErr := view.ReadLink(ctx, de.ID)
		if linkErr != nil {
			// Unmounted between the listing and the resolution.
			target = "(gone)"
		}
		table.Append([]string{de.Name, fmt.Sprintf("%d", de.ID), target})
		count++
		return true
	})
	if err != nil {
		return fmt.Errorf("read mount table: %w", err)
	}

	table.Render()
	fmt.Printf("\n%d mount(s)\n", count)
	return nil
}
