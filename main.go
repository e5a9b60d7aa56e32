// Command finburn totals server billing from a hosting dashboard page.
package main

import "github.com/theirongolddev/finburn/cmd"

func main() {
	cmd.Execute()
}
