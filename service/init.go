// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2021 Open Networking Foundation <info@opennetworking.org>
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0
//

// Package service owns the MME process lifecycle: config load, log
// level setup, config-file watch, and wiring the Attach core's
// collaborators together, the role service/init.go plays for the AMF.
package service

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/omec-project/mme/context"
	"github.com/omec-project/mme/emm"
	"github.com/omec-project/mme/emmas"
	"github.com/omec-project/mme/esm"
	"github.com/omec-project/mme/factory"
	"github.com/omec-project/mme/identity"
	"github.com/omec-project/mme/logger"
	"github.com/omec-project/mme/metrics"
)

type MME struct{}

type config struct {
	cfgPath string
}

var cfg config

var mmeCli = []cli.Flag{
	cli.StringFlag{
		Name:  "mmecfg",
		Usage: "mme config file",
	},
}

var initLog *logrus.Entry

func init() {
	initLog = logger.InitLog
}

func (*MME) GetCliCmd() (flags []cli.Flag) {
	return mmeCli
}

func (m *MME) Initialize(c *cli.Context) error {
	cfg = config{cfgPath: c.String("mmecfg")}
	if cfg.cfgPath == "" {
		return fmt.Errorf("service: -mmecfg is required")
	}

	if err := factory.InitConfigFactory(cfg.cfgPath); err != nil {
		return err
	}
	m.setLogLevel()

	if zapLogger, err := zap.NewProduction(); err == nil {
		context.SetBaseLogger(zapLogger.Sugar())
	} else {
		initLog.Warnf("zap logger init failed, per-ue structured logging disabled: %v", err)
	}

	return factory.CheckConfigVersion()
}

func (m *MME) setLogLevel() {
	if factory.MmeConfig.Logger == nil {
		initLog.Warnln("mme config without log level setting")
		return
	}
	if factory.MmeConfig.Logger.MME != nil {
		if factory.MmeConfig.Logger.MME.DebugLevel != "" {
			level, err := logrus.ParseLevel(factory.MmeConfig.Logger.MME.DebugLevel)
			if err != nil {
				initLog.Warnf("mme log level [%s] is invalid, set to [info]", factory.MmeConfig.Logger.MME.DebugLevel)
				level = logrus.InfoLevel
			}
			logger.SetLogLevel(level)
		}
		logger.SetReportCaller(factory.MmeConfig.Logger.MME.ReportCaller)
	}
}

func (m *MME) WatchConfig() {
	viper.SetConfigFile(cfg.cfgPath)
	if err := viper.ReadInConfig(); err != nil {
		initLog.Warnf("viper could not read config: %v", err)
		return
	}
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		initLog.Infof("config file changed: %s", e.Name)
		if err := factory.UpdateConfig(cfg.cfgPath); err != nil {
			initLog.Errorf("reload config failed: %v", err)
			return
		}
		initLog.Infoln("config reloaded")
	})
}

// Procedure builds the Attach core wired against the collaborators
// the current factory.MmeConfig describes: a fresh Context Store and
// an in-memory Provider/ESM/AS trio (spec.md 1's external
// collaborators, stood up here since this module ships no real
// HSS/eNB/ESM client).
func (m *MME) Procedure() *emm.Procedure {
	cfgSection := factory.MmeConfig.Configuration
	store := context.NewStore()
	idp := identity.NewFake(cfgSection.Gummei.ToGummei())
	for prefix, length := range cfgSection.PlmnMncLength {
		idp.SetMNCLength(prefix, length)
	}
	esmSvc := esm.NewFake()
	asSvc := emmas.NewFake()

	return emm.NewProcedure(store, idp, esmSvc, asSvc, cfgSection.ToEmmConfig(), metrics.NewAttachStats())
}

func (m *MME) Start() {
	initLog.Infoln("mme attach core started")

	go metrics.InitMetrics(":9089")
	m.WatchConfig()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)
	<-signalChannel
	m.Terminate()
	os.Exit(0)
}

func (m *MME) Terminate() {
	logger.InitLog.Infof("terminating mme")
}
