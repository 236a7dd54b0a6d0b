package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lawnchairsociety/tilegen/test"
)

func main() {
	serverAddr := flag.String("addr", "localhost:4480", "Tile server address")
	verbose := flag.Bool("v", false, "Verbose output - show detailed actions for each test")
	filter := flag.String("run", "", "Only run tests whose name contains this text")
	list := flag.Bool("list", false, "List test names and exit")
	flag.Parse()

	if *list {
		for _, name := range test.GetTestNames() {
			fmt.Println(name)
		}
		return
	}

	// Set verbose mode
	test.Verbose = *verbose

	fmt.Printf("Running integration tests against %s\n", *serverAddr)
	fmt.Println("Make sure the tile server is running!")
	if *verbose {
		fmt.Println("Verbose mode enabled - showing detailed test actions")
	}
	fmt.Println()

	var results []test.TestResult
	if *filter != "" {
		results = test.RunFilteredTests(*serverAddr, *filter)
	} else {
		results = test.RunAllTests(*serverAddr)
	}
	test.PrintResults(results)

	// Exit with error code if any tests failed
	for _, result := range results {
		if !result.Passed {
			os.Exit(1)
		}
	}
}
