package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sam/internal/session"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List session directories in the work directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := session.ListDirectories(cfg.Paths.WorkDir)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, dirs)
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No session directories")
				return nil
			}

			last := ""
			store := session.NewStore(cfg.Paths.WorkDir, cfg.Paths.PointerFile, nil, nil)
			if ptr, err := store.ReadPointer(); err == nil {
				last = ptr.SessionID
			}

			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				marker := ""
				if dir.Name == last {
					marker = "*"
				}
				rows = append(rows, []string{
					marker,
					dir.Name,
					strconv.Itoa(dir.Images),
					dir.ModTime.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"", "Session", "Images", "Modified"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
