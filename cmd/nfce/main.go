// Command nfce is the operator CLI: parse recognized text, preprocess and
// scan receipt images, browse the local receipt store and manage users.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
