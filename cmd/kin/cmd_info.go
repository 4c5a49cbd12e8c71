package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/chazu/linkage/pkg/kinematics"
	"github.com/spf13/cobra"
)

func newInfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Describe the links and joints of a robot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := opts.app.Load(args[0])
			if err != nil {
				return err
			}
			return printInfo(cmd, t)
		},
	}
}

func printInfo(cmd *cobra.Command, t *kinematics.Tree) error {
	out := cmd.OutOrStdout()
	root := t.Arena().Payload(t.Root())
	fmt.Fprintf(out, "robot %s: %d links, %d dof, root %s\n", t.Name, len(t.Links()), t.DOF(), root.Name())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINK\tPARENT\tJOINT\tTYPE\tAXIS\tLIMITS\tVISUAL")
	for _, l := range t.Links() {
		parent := "-"
		if id, ok := t.Find(l.Name()); ok {
			if p, ok := t.Arena().Parent(id); ok {
				parent = t.Arena().Payload(p).Name()
			}
		}
		j := l.Joint()
		axis, limits, visual := "-", "-", "-"
		if j.Type() != kinematics.Fixed {
			a := j.Axis()
			axis = fmt.Sprintf("(%g, %g, %g)", a.X, a.Y, a.Z)
		}
		if r := j.Limits(); r != nil {
			limits = fmt.Sprintf("[%g, %g]", r.Min, r.Max)
		}
		if v := l.Visual(); v != nil {
			visual = v.Shape.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", l.Name(), parent, j.Name(), j.Type(), axis, limits, visual)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, v := range t.Validate() {
		fmt.Fprintln(out, v.Error())
	}
	return nil
}
