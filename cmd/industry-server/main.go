// Command industry-server runs the production economy server and its
// offline tools.
package main

import "github.com/SebastianChristoph/industrygame-sub000/internal/cli"

func main() {
	cli.Execute()
}
