package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hostdesk/hostdesk/cmd/hostdeskctl/cli"
)

const usage = `hostdeskctl <command>

Commands:
  trigger <job> [arg]   enqueue a job (archive:build <request-id>, archive:verify)
  stats                 print default queue counters
  scheduled [n]         list up to n scheduled tasks (default 10)
`

func main() {
	redisAddr := flag.String("redis", envOr("REDIS_ADDR", "localhost:6379"), "redis address")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	jobsCLI, err := cli.NewJobsCLI(*redisAddr)
	if err != nil {
		fatal(err)
	}
	defer jobsCLI.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fatal(fmt.Errorf("trigger needs a job name"))
		}
		arg := ""
		if len(args) > 2 {
			arg = args[2]
		}
		info, err := jobsCLI.Trigger(ctx, args[1], arg)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	case "scheduled":
		size := 10
		if len(args) > 1 {
			fmt.Sscanf(args[1], "%d", &size)
		}
		tasks, err := jobsCLI.ListScheduled(ctx, size)
		if err != nil {
			fatal(err)
		}
		for _, task := range tasks {
			fmt.Printf("%s id=%s next=%s\n", task.Type, task.ID, task.NextProcessAt.Format(time.RFC3339))
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "hostdeskctl:", err)
	os.Exit(1)
}
