package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NathanielJS1541/TemperatureMonitor/pkg/clock"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/graphite"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/monitor"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/netlink"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/sensor"
	"github.com/NathanielJS1541/TemperatureMonitor/pkg/status"
)

var (
	mockSensor bool
	noNTP      bool
)

func init() {
	runCmd.Flags().BoolVar(&mockSensor, "mock", false, "use a simulated sensor instead of the serial bridge")
	runCmd.Flags().BoolVar(&noNTP, "no-ntp", false, "trust the system clock instead of querying NTP")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring pipeline until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var sen sensor.Sensor
		if mockSensor || cfg.Sensor.Mock {
			log.Println("using mocked sensor")
			sen = sensor.NewMock(0)
		} else {
			sen = sensor.NewSerial(cfg.Sensor.Port, cfg.Sensor.Baud)
		}
		defer sen.Close()

		var clk clock.Clock
		if noNTP || !cfg.NTP.Enabled {
			clk = clock.System{}
		} else {
			clk = clock.NewNTP(cfg.NTP.Server, cfg.NTP.Timeout())
		}

		dial := graphite.Dialer(
			cfg.Graphite.Host,
			cfg.Graphite.Port,
			cfg.Graphite.ConnectTimeout(),
			cfg.Metrics.TemperaturePath,
			cfg.Metrics.HumidityPath,
		)

		m := monitor.New(
			cfg,
			sen,
			clk,
			netlink.NewProbe(cfg.Graphite.Host, cfg.Graphite.Port),
			&status.Logger{},
			dial,
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Printf("reporting to %s:%d as %q / %q",
			cfg.Graphite.Host, cfg.Graphite.Port,
			cfg.Metrics.TemperaturePath, cfg.Metrics.HumidityPath)

		if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.Println("shutting down")
		return nil
	},
}
