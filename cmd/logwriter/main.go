package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"workpulse/pkg/config"
	"workpulse/pkg/constants"
	"workpulse/pkg/logger"
	mysqlstore "workpulse/pkg/store/mysql"
	storemodel "workpulse/pkg/store/mysql/model"
)

// Canned payloads simulating script activity.
var logLevels = []string{
	constants.LogLevelDebug.String(),
	constants.LogLevelInfo.String(),
	constants.LogLevelWarning.String(),
	constants.LogLevelError.String(),
}

var logMessages = []string{
	"Starting scheduled task",
	"Loading configuration",
	"Fetching upstream payload",
	"Transforming dataset",
	"Completed batch successfully",
	"Retrying after transient failure",
	"Writing output artifacts",
	"Heartbeat check",
}

func main() {
	script := flag.String("script", "demo-script", "Script name to store with each log")
	count := flag.Int("count", 20, "Number of logs to emit when not following")
	interval := flag.Duration("interval", time.Second, "Delay between log entries")
	follow := flag.Bool("follow", false, "Keep writing logs until interrupted")
	flag.Parse()

	if err := run(*script, *count, *interval, *follow); err != nil {
		fmt.Fprintf(os.Stderr, "log writer failed: %v\n", err)
		os.Exit(1)
	}
}

func run(script string, count int, interval time.Duration, follow bool) error {
	if script == "" {
		return fmt.Errorf("script name is required")
	}

	if err := config.Init(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	repo, err := mysqlstore.NewRepository(mysqlstore.BuildDSN(config.GlobalConfig.MySQL))
	if err != nil {
		return fmt.Errorf("failed to connect to mysql: %w", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		fmt.Println("Log writer stopped.")
		cancel()
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	runID := uuid.NewString()

	for sequence := int64(1); follow || sequence <= int64(count); sequence++ {
		entry := buildLogEntry(rng, script, runID, sequence)
		if err := repo.ScriptLog.Insert(ctx, entry); err != nil {
			return fmt.Errorf("failed to insert log %d: %w", sequence, err)
		}
		fmt.Printf("Inserted log %d for %s\n", sequence, script)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
	return nil
}

// buildLogEntry assembles one synthetic row matching the script_logs schema.
func buildLogEntry(rng *rand.Rand, scriptName, runID string, sequence int64) *storemodel.ScriptLog {
	return &storemodel.ScriptLog{
		ScriptName: scriptName,
		Level:      logLevels[rng.Intn(len(logLevels))],
		Message:    logMessages[rng.Intn(len(logMessages))],
		Metadata: storemodel.JSONMap{
			"run_id":       runID,
			"sequence":     sequence,
			"execution_ms": 45 + rng.Intn(1356),
		},
		CreatedAt: time.Now().UTC(),
	}
}
