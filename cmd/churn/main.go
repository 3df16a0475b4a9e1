package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Nutonspeed/BN-Aura/internal/churn"
	"github.com/Nutonspeed/BN-Aura/internal/cli"
)

//
// ---------------------- CLI ----------------------
//
// churn [flags] <clinic-id> [output-dir]
//
// --config : TOML config file
// --data   : CSV with the churn feature columns plus "churned"
// --plot   : also write churn_importance_<clinic>.png
//
// Example:
//   go run ./cmd/churn --plot clinic_001 models
//
// -------------------------------------------------
//

func main() {
	fs := flag.NewFlagSet("churn", flag.ExitOnError)
	var flags cli.Flags
	flags.Register(fs)
	plot := fs.Bool("plot", false, "Write the feature-importance chart")
	fs.Usage = cli.Usage(fs, os.Stderr, "churn")
	_ = fs.Parse(os.Args[1:])

	env, err := cli.Setup(flags, fs.Args())
	if err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fs.Usage()
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "setup failed:", err)
		os.Exit(1)
	}

	fmt.Printf("Training churn model for clinic %s\n\n", env.Clinic)
	_, err = churn.Train(context.Background(), churn.Options{
		Clinic:   env.Clinic,
		Config:   env.Config,
		DataPath: flags.DataPath,
		Plot:     *plot,
		Store:    env.Store,
		Out:      os.Stdout,
		Log:      env.Log,
	})
	if err != nil {
		env.Log.WithError(err).Fatal("churn training failed")
	}
}
