// adjust-brightness reads and sets monitor brightness through xrandr.
package main

import "github.com/hoppxi/adjust-brightness/internal/cmd"

func main() {
	cmd.Execute()
}
