package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newMeshCmd(opts *rootOptions) *cobra.Command {
	var (
		angles []float64
		output string
		merge  bool
	)
	cmd := &cobra.Command{
		Use:   "mesh FILE",
		Short: "Tessellate link visuals at a pose and write JSON meshes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := opts.app.Load(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("angles") {
				if err := t.SetJointAngles(angles); err != nil {
					return err
				}
			}
			meshes, err := opts.app.Meshes(t, merge)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := json.NewEncoder(w).Encode(meshes); err != nil {
				return fmt.Errorf("failed to write meshes: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Float64SliceVar(&angles, "angles", nil, "joint values in traversal order")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&merge, "merge", false, "union all links into one mesh")
	return cmd
}
