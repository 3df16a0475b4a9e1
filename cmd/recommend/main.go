package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Nutonspeed/BN-Aura/internal/cli"
	"github.com/Nutonspeed/BN-Aura/internal/recommend"
)

// recommend [flags] <clinic-id> [output-dir]
//
// Without --customer the recommender is trained and persisted. With
// --customer the persisted artifacts are queried instead.
//
// --config   : TOML config file
// --data     : CSV with customer_id,treatment_id,purchase_count
// --customer : customer id to recommend treatments for
// --n        : number of recommendations (default 5)
func main() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	var flags cli.Flags
	flags.Register(fs)
	customer := fs.String("customer", "", "Recommend for this customer instead of training")
	n := fs.Int("n", 5, "Number of recommendations")
	fs.Usage = cli.Usage(fs, os.Stderr, "recommend")
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
	ctx := context.Background()

	if *customer != "" {
		recs, err := recommend.Recommend(ctx, recommend.QueryOptions{
			Clinic:     env.Clinic,
			CustomerID: *customer,
			N:          *n,
			Store:      env.Store,
			Log:        env.Log,
		})
		if err != nil {
			env.Log.WithError(err).Fatal("recommendation failed")
		}
		if len(recs) == 0 {
			if ok, _ := env.Store.Exists(ctx, recommend.IndexKey(env.Clinic)); !ok {
				fmt.Printf("No trained recommender for clinic %s; run training first.\n", env.Clinic)
				return
			}
			fmt.Printf("No recommendations for customer %s\n", *customer)
			return
		}
		fmt.Printf("Recommendations for customer %s:\n", *customer)
		for i, r := range recs {
			fmt.Printf("  %d. %-10s score=%.4f\n", i+1, r.TreatmentID, r.Score)
		}
		return
	}

	fmt.Printf("Training treatment recommender for clinic %s\n\n", env.Clinic)
	if _, err := recommend.Train(ctx, recommend.Options{
		Clinic:   env.Clinic,
		Config:   env.Config,
		DataPath: flags.DataPath,
		Store:    env.Store,
		Out:      os.Stdout,
		Log:      env.Log,
	}); err != nil {
		env.Log.WithError(err).Fatal("recommender training failed")
	}
}
