// Command refbundle bundles reference documents into archives, either from the
// command line or as an HTTP service.
package main

import "github.com/refbundle/refbundle/cmd"

func main() {
	cmd.Execute()
}
