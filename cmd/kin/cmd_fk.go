package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chazu/linkage/pkg/kinematics"
	"github.com/chazu/linkage/pkg/spatial"
	"github.com/spf13/cobra"
)

func newFKCmd(opts *rootOptions) *cobra.Command {
	var (
		angles []float64
		end    string
	)
	cmd := &cobra.Command{
		Use:   "fk FILE",
		Short: "Print world transforms for a set of joint values",
		Long: `Sets the tree's movable joints in traversal order and prints the
world transform of every link, or of a single chain end with --end.`,
		Args: cobra.ExactArgs(1),
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
			out := cmd.OutOrStdout()
			if end != "" {
				c, err := opts.app.Chain(t, end)
				if err != nil {
					return err
				}
				return printPoses(out, []string{end}, []spatial.Isometry{c.CalcEndTransform()})
			}
			return printPoses(out, t.LinkNames(), t.CalcLinkTransforms())
		},
	}
	cmd.Flags().Float64SliceVar(&angles, "angles", nil, "joint values in traversal order")
	cmd.Flags().StringVar(&end, "end", "", "print only the transform of this link")
	return cmd
}

// printPoses writes one line per link: translation then roll, pitch, yaw.
func printPoses(w io.Writer, names []string, poses []spatial.Isometry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINK\tX\tY\tZ\tROLL\tPITCH\tYAW")
	for i, p := range poses {
		r, pi, y := p.RPY()
		t := p.Translation
		fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\n", names[i], t.X, t.Y, t.Z, r, pi, y)
	}
	return tw.Flush()
}

// printAngles writes the joint values of c by joint name.
func printAngles(w io.Writer, c *kinematics.Chain) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, v := range c.JointAngles() {
		fmt.Fprintf(tw, "%s\t%.6f\n", c.JointNames()[i], v)
	}
	return tw.Flush()
}
