package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Nutonspeed/BN-Aura/internal/cli"
	"github.com/Nutonspeed/BN-Aura/internal/leads"
)

// leads [flags] <clinic-id> [output-dir]
//
// --config : TOML config file
// --data   : CSV with the lead feature columns plus "converted"
// --plot   : also write lead_scoring_importance_<clinic>.png
func main() {
	fs := flag.NewFlagSet("leads", flag.ExitOnError)
	var flags cli.Flags
	flags.Register(fs)
	plot := fs.Bool("plot", false, "Write the feature-importance chart")
	fs.Usage = cli.Usage(fs, os.Stderr, "leads")
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

	fmt.Printf("Training lead scoring model for clinic %s\n\n", env.Clinic)
	res, err := leads.Train(context.Background(), leads.Options{
		Clinic:   env.Clinic,
		Config:   env.Config,
		DataPath: flags.DataPath,
		Plot:     *plot,
		Store:    env.Store,
		Out:      os.Stdout,
		Log:      env.Log,
	})
	if err != nil {
		env.Log.WithError(err).Fatal("lead scoring training failed")
	}
	if len(res.Importances) > 0 {
		top := res.Importances[0]
		fmt.Printf("\nAccuracy %.4f, strongest signal %s (%.4f)\n", res.Accuracy, top.Feature, top.Importance)
	}
}
