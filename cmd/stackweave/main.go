package main

import (
	"fmt"
	"os"

	"github.com/stackweave/stackweave/compiler"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	cmd := os.Args[1]

	switch cmd {
	case "synth":
		runSynth(os.Args[2:])
	case "manifest":
		runManifest(os.Args[2:])
	case "publish":
		runPublish(os.Args[2:])
	case "hash":
		runHash(os.Args[2:])
	case "version":
		runVersion()
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("StackWeave — graph-schema infrastructure weaver v%s\n", compiler.Version)
	fmt.Println("\nUsage:")
	fmt.Println("  stackweave synth     Compile a schema into stack templates and resolvers")
	fmt.Println("  stackweave manifest  Print the generated pipeline slots of a schema")
	fmt.Println("  stackweave publish   Synthesize and upload assets to the deployment bucket")
	fmt.Println("  stackweave hash      Print the stable input hash of a schema")
	fmt.Println("  stackweave version   Print the compiler version")
}

func runVersion() {
	fmt.Printf("stackweave %s (schema version %s)\n", compiler.Version, compiler.SchemaVersion)
}
