package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/biotinker/flapjack"
	"github.com/biotinker/flapjack/internal/creds"

	goutils "go.viam.com/utils"

	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/robot/client"
	"go.viam.com/utils/rpc"
)

func main() {
	credsPath := flag.String("creds", "", "path to robot credentials JSON file")
	plansDir := flag.String("plans-dir", "", "directory for cached pour trajectory plans (optional)")
	flag.Parse()

	logger := logging.NewDebugLogger("flapjack")

	if *credsPath == "" {
		logger.Fatal("-creds flag is required")
	}
	robotCreds, err := creds.Load(*credsPath)
	if err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	machine, err := client.New(
		ctx,
		robotCreds.Address,
		logger,
		client.WithDialOptions(rpc.WithEntityCredentials(
			robotCreds.EntityID,
			rpc.Credentials{
				Type:    rpc.CredentialsTypeAPIKey,
				Payload: robotCreds.APIKey,
			})),
	)
	if err != nil {
		logger.Fatal(err)
	}
	defer machine.Close(context.Background())

	logger.Info("Connected to robot")
	logger.Info("Resources:", machine.ResourceNames())

	r, err := flapjack.NewRobot(ctx, machine, logger)
	if err != nil {
		logger.Fatal(err)
	}
	if *plansDir != "" {
		r.PlansDir = *plansDir
	}

	// The vision loop and the cooking loop run as independent handlers; the
	// detector must keep seeing frames while motion executes. If vision dies
	// the cooking loop cannot make progress, so bring the whole process down.
	goutils.PanicCapturingGo(func() {
		if err := flapjack.WatchGriddle(ctx, r); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("Vision loop exited: %v", err)
			cancel()
		}
	})

	if err := flapjack.Run(ctx, r); err != nil {
		logger.Fatal(err)
	}
}
