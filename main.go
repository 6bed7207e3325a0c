// Command magorder enumerates collinear magnetic orderings of a crystal
// structure and plans the calculations that rank them.
package main

import "github.com/papapumpkin/magorder/cmd"

func main() {
	cmd.Execute()
}
