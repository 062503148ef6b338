package main

import (
	"context"
	"studiocheck/cmd/studio-cli/commands"
	"studiocheck/lib/configutil"
	"studiocheck/lib/serviceutil"
)

func main() {
	err := configutil.LoadEnv()
	if err != nil {
		serviceutil.Fatal("load .env", err)
	}
	commands.ExecuteContext(context.Background())
}
