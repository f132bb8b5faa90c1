// SPDX-License-Identifier: Apache-2.0

// Package main is the main package of the application
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/antoninbas/p4runtime-go-client/pkg/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netprog/p4route-ctrl/pkg/config"
	"github.com/netprog/p4route-ctrl/pkg/entrystore"
	"github.com/netprog/p4route-ctrl/pkg/pipeline"
	"github.com/netprog/p4route-ctrl/pkg/routesource"
	"github.com/netprog/p4route-ctrl/pkg/schema"
	"github.com/netprog/p4route-ctrl/pkg/session"
	"github.com/netprog/p4route-ctrl/pkg/utils"
	"github.com/netprog/p4route-ctrl/pkg/verify"
)

var rootCmd = &cobra.Command{
	Use:   "p4route-ctrl",
	Short: "P4Runtime routing controller",
	Long:  "Programs the route, ARP and L2 forwarding tables of a P4 device from a declarative routing specification",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return validateConfigs()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		return run()
	},
}

func initialize() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&config.GlobalConfig.CfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().String("p4info", "", "p4info proto in text format from p4c")
	rootCmd.PersistentFlags().String("bmv2-json", "", "BMv2 JSON file from p4c")
	rootCmd.PersistentFlags().String("routing-info", "", "routing specification file")
	rootCmd.PersistentFlags().String("addr", "127.0.0.1:50051", "device P4Runtime address")
	rootCmd.PersistentFlags().Uint64("device-id", 0, "device id")
	rootCmd.PersistentFlags().String("dbaddress", "127.0.0.1:6379", "db address in ip_address:port format")
	rootCmd.PersistentFlags().String("database", "gomap", "shadow store backend (gomap or redis)")
	rootCmd.PersistentFlags().Int("timeout", 15, "device response timeout in seconds")
	rootCmd.PersistentFlags().Bool("from-kernel", false, "derive routing records from the kernel FIB instead of --routing-info")

	if err := viper.GetViper().BindPFlags(rootCmd.PersistentFlags()); err != nil {
		log.Printf("Error binding flags to Viper: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if config.GlobalConfig.CfgFile != "" {
		viper.SetConfigFile(config.GlobalConfig.CfgFile)
	} else {
		viper.AddConfigPath("./")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config.yaml")
	}
	config.LoadConfig()
}

func validateConfigs() error {
	cfg := config.GetConfig()

	for _, f := range []struct{ name, path string }{
		{"p4info", cfg.P4info},
		{"bmv2-json", cfg.Bmv2JSON},
	} {
		if f.path == "" {
			return fmt.Errorf("--%s is required", f.name)
		}
		if _, err := os.Stat(f.path); err != nil {
			return fmt.Errorf("%s file not found: %s (have you run 'make'?)", f.name, f.path)
		}
	}

	if !cfg.FromKernel {
		if cfg.RoutingInfo == "" {
			return fmt.Errorf("--routing-info is required unless --from-kernel is set")
		}
		if _, err := os.Stat(cfg.RoutingInfo); err != nil {
			return fmt.Errorf("routing info file not found: %s", cfg.RoutingInfo)
		}
	}

	if cfg.Addr == "" {
		return fmt.Errorf("device address must not be empty")
	}
	if cfg.TimeoutSec <= 0 {
		return fmt.Errorf("timeout must be a positive number of seconds")
	}
	return nil
}

func main() {
	initialize()
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func loadRecords(cfg *config.Config) ([]pipeline.RoutingRecord, error) {
	if cfg.FromKernel {
		return routesource.FromKernel()
	}
	f, err := os.Open(cfg.RoutingInfo)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return pipeline.ParseRoutingSpec(f)
}

func run() error {
	cfg := config.GetConfig()

	tp := utils.InitTracerProvider("p4route-ctrl")
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Tracer Provider Shutdown: %v", err)
		}
	}()

	stopCh := signals.RegisterSignalHandlers()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stopCh
		log.Println("Shutting down.")
		cancel()
	}()

	cat, err := schema.Load(cfg.P4info)
	if err != nil {
		return err
	}
	deviceConfig, err := os.ReadFile(cfg.Bmv2JSON)
	if err != nil {
		return err
	}
	records, err := loadRecords(cfg)
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	connectCtx, connectCancel := context.WithTimeout(ctx, timeout)
	sess, err := session.Connect(connectCtx, cfg.Addr, cfg.DeviceID, utils.DialOptions()...)
	connectCancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Shutdown(); err != nil {
			log.Printf("Session shutdown: %v", err)
		}
	}()

	if err := sess.Arbitrate(ctx); err != nil {
		return err
	}
	if err := sess.PushPipelineConfig(ctx, cat.P4Info(), deviceConfig); err != nil {
		return err
	}
	log.Printf("Installed P4 program using SetForwardingPipelineConfig on device %d", cfg.DeviceID)

	store, err := entrystore.New(cfg.Database, cfg.DBAddress)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Shadow store close: %v", err)
		}
	}()

	installCtx, span := utils.Tracer().Start(ctx, "install")
	report := pipeline.Install(installCtx, sess, cat, records, store)
	span.End()
	report.WriteSummary(os.Stdout)

	tables := []string{pipeline.TableIPv4Route, pipeline.TableArp, pipeline.TableDmacForward}
	for _, table := range tables {
		if err := verify.PrintTable(ctx, os.Stdout, sess, cat, table); err != nil {
			return err
		}
	}
	for _, table := range tables {
		diff, err := verify.Diff(ctx, sess, cat, store, table)
		if err != nil {
			return err
		}
		diff.WriteSummary(os.Stdout)
	}

	if failed := report.FailedCount(); failed > 0 {
		return fmt.Errorf("%d of %d entries failed to install", failed, report.Total())
	}
	return nil
}
