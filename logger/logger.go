package logger

import (
	"os"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/omec-project/logger_util"
	"github.com/sirupsen/logrus"
)

var log *logrus.Logger
var AppLog *logrus.Entry
var InitLog *logrus.Entry
var CfgLog *logrus.Entry
var ContextLog *logrus.Entry
var TimerLog *logrus.Entry
var EmmLog *logrus.Entry
var EsmLog *logrus.Entry
var EmmasLog *logrus.Entry
var IdentityLog *logrus.Entry
var MetricsLog *logrus.Entry
var UtilLog *logrus.Entry

func init() {
	log = logrus.New()
	log.SetReportCaller(false)

	log.Formatter = &formatter.Formatter{
		TimestampFormat: time.RFC3339,
		TrimMessages:    true,
		NoFieldsSpace:   true,
		HideKeys:        true,
		FieldsOrder:     []string{"component", "category"},
	}

	logHook, err := logger_util.NewFileHook("mme.log", os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o666)
	if err == nil {
		log.Hooks.Add(logHook)
	}

	AppLog = log.WithFields(logrus.Fields{"component": "MME", "category": "App"})
	InitLog = log.WithFields(logrus.Fields{"component": "MME", "category": "Init"})
	CfgLog = log.WithFields(logrus.Fields{"component": "MME", "category": "Cfg"})
	ContextLog = log.WithFields(logrus.Fields{"component": "MME", "category": "Context"})
	TimerLog = log.WithFields(logrus.Fields{"component": "MME", "category": "Timer"})
	EmmLog = log.WithFields(logrus.Fields{"component": "MME", "category": "Emm"})
	EsmLog = log.WithFields(logrus.Fields{"component": "MME", "category": "Esm"})
	EmmasLog = log.WithFields(logrus.Fields{"component": "MME", "category": "EmmAs"})
	IdentityLog = log.WithFields(logrus.Fields{"component": "MME", "category": "Identity"})
	MetricsLog = log.WithFields(logrus.Fields{"component": "MME", "category": "Metrics"})
	UtilLog = log.WithFields(logrus.Fields{"component": "MME", "category": "Util"})
}

func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

func SetReportCaller(enable bool) {
	log.SetReportCaller(enable)
}
