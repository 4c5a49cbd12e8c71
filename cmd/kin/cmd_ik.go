package main

import (
	"errors"
	"fmt"

	"github.com/chazu/linkage/pkg/ik"
	"github.com/chazu/linkage/pkg/spatial"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
)

func newIKCmd(opts *rootOptions) *cobra.Command {
	var (
		end          string
		target       []float64
		targetAngles []float64
		initial      []float64
		metrics      bool
	)
	cmd := &cobra.Command{
		Use:   "ik FILE",
		Short: "Solve joint values that place a link at a target pose",
		Long: `Solves the chain from the root to --end. The target is either a pose
given as x,y,z,roll,pitch,yaw or the end pose reached by --target-angles.
--init sets the starting guess; otherwise the description's initial joint
values are used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hasTarget := cmd.Flags().Changed("target")
			hasAngles := cmd.Flags().Changed("target-angles")
			if hasTarget == hasAngles {
				return errors.New("exactly one of --target and --target-angles is required")
			}
			if hasTarget && len(target) != 6 {
				return fmt.Errorf("--target wants 6 values x,y,z,roll,pitch,yaw, got %d", len(target))
			}

			t, err := opts.app.Load(args[0])
			if err != nil {
				return err
			}
			c, err := opts.app.Chain(t, end)
			if err != nil {
				return err
			}

			start := c.JointAngles()
			if cmd.Flags().Changed("init") {
				start = initial
			}

			var goal spatial.Isometry
			if hasAngles {
				if err := c.SetJointAngles(targetAngles); err != nil {
					return err
				}
				goal = c.CalcEndTransform()
			} else {
				goal = spatial.NewIsometry(
					r3.Vec{X: target[0], Y: target[1], Z: target[2]},
					spatial.FromRPY(target[3], target[4], target[5]))
			}
			if err := c.SetJointAngles(start); err != nil {
				return err
			}

			res, solveErr := opts.app.Solve(c, goal)
			out := cmd.OutOrStdout()
			if solveErr == nil {
				fmt.Fprintf(out, "converged in %d iterations\n", res.Iterations)
			} else if errors.Is(solveErr, ik.ErrNotConverged) {
				fmt.Fprintf(out, "not converged after %d iterations (position %.6g, angle %.6g)\n",
					res.Iterations, res.PositionError, res.AngleError)
			} else {
				return solveErr
			}
			if err := printAngles(out, c); err != nil {
				return err
			}
			if err := printPoses(out, []string{end}, []spatial.Isometry{c.CalcEndTransform()}); err != nil {
				return err
			}
			if metrics {
				if err := opts.app.WriteMetrics(out); err != nil {
					return err
				}
			}
			return solveErr
		},
	}
	cmd.Flags().StringVar(&end, "end", "", "end link of the chain to solve")
	cmd.Flags().Float64SliceVar(&target, "target", nil, "target pose x,y,z,roll,pitch,yaw")
	cmd.Flags().Float64SliceVar(&targetAngles, "target-angles", nil, "joint values whose end pose is the target")
	cmd.Flags().Float64SliceVar(&initial, "init", nil, "initial joint values")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print solver metrics after solving")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}
