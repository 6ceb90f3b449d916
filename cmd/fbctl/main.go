// Command fbctl is a small administration tool built on the SDK. It exists
// mainly as a smoke test bed for the request pipeline against real projects.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
