// Command dlcsh is an interactive client for a running dlcctl.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chzyer/readline"

	"github.com/itohio/dlcpro/pkg/config"
	"github.com/itohio/dlcpro/pkg/rpc"
)

func main() {
	var (
		serverFlag  = flag.String("s", fmt.Sprintf("127.0.0.1:%d", config.DefaultPort), "Controller address")
		timeoutFlag = flag.Duration("timeout", 10*time.Second, "Per-command timeout")
	)
	flag.Parse()

	client, err := rpc.Dial(*serverFlag)
	if err != nil {
		slog.Error("failed to connect", "address", *serverFlag, "error", err)
		os.Exit(1)
	}
	defer client.Close()
	client.Timeout = *timeoutFlag

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "dlcpro> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		slog.Error("failed to create readline", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	NewShell(client, client, rl.Stdout()).Run(ctx, rl)
}
