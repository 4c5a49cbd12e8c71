// Command kin loads robot descriptions and runs forward kinematics, inverse
// kinematics and meshing on them.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
