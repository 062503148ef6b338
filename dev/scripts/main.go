package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
)

func printScripts() {
	fmt.Println("Scripts:")
	keys := make([]string, 0, len(scriptMap))
	for key := range scriptMap {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		fmt.Println("\t" + key)
	}
}

func main() {
	flag.Parse()

	script := flag.Arg(0)
	fn, ok := scriptMap[script]
	if !ok {
		fmt.Printf(
			"you must specify a valid script, '%s' is not a valid script.\n",
			script,
		)
		printScripts()
		os.Exit(1)
	}

	fn(flag.Args()[1:])
}

func cmd(dir, name string, args ...string) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fmt.Printf("$ (%s) %s %s\n", dir, name, strings.Join(args, " "))
	err := cmd.Run()
	if err != nil {
		os.Exit(1)
	}
}

var scriptMap = map[string]func(args []string){
	"test":             test,
	"dev:scraper":      runScraperServer,
	"dev:availability": runAvailabilityServer,
	"dev:check":        check,
}

func test(args []string) {
	cmd(".", "go", append([]string{"test", "./..."}, args...)...)
}

func runScraperServer(args []string) {
	cmd("cmd/scraper-server", "go", append([]string{"run", ".", "-v"}, args...)...)
}

func runAvailabilityServer(args []string) {
	cmd("cmd/availability-server", "go", append([]string{"run", ".", "-v"}, args...)...)
}

// check runs the cli against the local scraper server.
func check(args []string) {
	cmd(".", "go", append([]string{"run", "./cmd/studio-cli", "--delegate", "http://localhost:3001", "check"}, args...)...)
}
