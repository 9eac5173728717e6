// ydl is the Yanka Dev Lab CLI for moving WordPress databases between
// local and remote projects.
package main

import (
	"os"

	"github.com/yankadevlab/ydl/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
