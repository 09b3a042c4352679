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

var steps = map[string]func(context.Context, *flapjack.Robot) error{
	"pour":  flapjack.Pour,
	"flip":  flapjack.Flip,
	"lift":  flapjack.Lift,
	"reset": flapjack.ResetCycle,
}

// Steps that consume vision signals need the watch loop running beside them.
var needsVision = map[string]bool{
	"flip": true,
	"lift": true,
}

const validSteps = "watch, pour, flip, lift, reset"

func main() {
	credsPath := flag.String("creds", "", "path to robot credentials JSON file")
	step := flag.String("step", "", "step to run: "+validSteps)
	plansDir := flag.String("plans-dir", "", "directory for cached pour trajectory plans (optional)")
	flag.Parse()

	logger := logging.NewLogger("flapjack-cli")

	if *credsPath == "" {
		logger.Fatal("-creds flag is required")
	}
	if *step == "" {
		logger.Fatal("-step flag is required; valid steps: " + validSteps)
	}

	// Validate step name.
	if *step != "watch" {
		if _, ok := steps[*step]; !ok {
			logger.Fatalf("unknown step %q; valid steps: %s", *step, validSteps)
		}
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

	r, err := flapjack.NewRobot(ctx, machine, logger)
	if err != nil {
		logger.Fatal(err)
	}
	if *plansDir != "" {
		r.PlansDir = *plansDir
	}

	logger.Infof("=== Running step: %s ===", *step)

	if *step == "watch" {
		// Pretend a pour just finished so the detector arms and the full
		// detection pipeline can be watched without moving the arm.
		r.Signals().SetPancakePoured()
		if err := flapjack.WatchGriddle(ctx, r); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal(err)
		}
		return
	}

	if needsVision[*step] {
		r.Signals().SetPancakePoured()
		goutils.PanicCapturingGo(func() {
			if err := flapjack.WatchGriddle(ctx, r); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Vision loop exited: %v", err)
				cancel()
			}
		})
	}

	if err := steps[*step](ctx, r); err != nil {
		logger.Fatal(err)
	}
	logger.Infof("Step %s completed successfully", *step)
}
