package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/ivle-sim/internal/api"
	"github.com/talgya/ivle-sim/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var flags runFlags
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a simulation and serve it over the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, flags)
			if cmd.Flags().Changed("addr") {
				cfg.API.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			rec := telemetry.NewRecorder()
			res, err := simulate(cfg, rec)
			if err != nil {
				return err
			}
			if err := persist(cmd.Context(), cfg, res); err != nil {
				return err
			}
			printSummary(os.Stdout, res)

			srv := api.NewServer(&api.Run{
				ID:         res.id,
				Config:     res.config,
				Catalog:    res.catalog,
				Actors:     res.sim.Actors,
				Events:     res.events,
				Stats:      res.sim.Stats,
				Metrics:    res.raw,
				Normalised: res.normalised,
				Weights:    res.weights,
			}, rec, cfg.API.Addr)

			fmt.Printf("\nAPI: http://localhost%s/api/v1/status (Ctrl+C to stop)\n", cfg.API.Addr)
			return srv.ListenAndServe(cmd.Context())
		},
	}

	addSimulationFlags(cmd, &flags)
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")

	return cmd
}
