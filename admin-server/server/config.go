package server

import (
	"github.com/mistermingming/ProcurementManagement/util/config"
	"github.com/mistermingming/ProcurementManagement/util/log"
)

var DefaultDbPath = "data.db"
var DefaultStaticDir = "www"
var DefaultHttpPort int = 8000
var DefaultMaxClients int = 256
var DefaultMaxWorkNum uint64 = 16
var DefaultMaxTaskQueueLen uint64 = 1024
var DefaultMetricIntervalSec int = 60

type Config struct {
	DbPath    string
	StaticDir string

	HttpPort   int
	MaxClients int

	LogDir    string
	LogModule string
	LogLevel  string

	MaxWorkNum      uint64
	MaxTaskQueueLen uint64

	OpenMetric        bool
	MetricIntervalSec int
}

func (c *Config) LoadConfig() {
	c.DbPath = DefaultDbPath
	c.StaticDir = DefaultStaticDir
	c.HttpPort = DefaultHttpPort
	c.MaxClients = DefaultMaxClients
	c.MaxWorkNum = DefaultMaxWorkNum
	c.MaxTaskQueueLen = DefaultMaxTaskQueueLen
	c.MetricIntervalSec = DefaultMetricIntervalSec
	c.LogModule = "admin"
	c.LogLevel = "INFO"

	config.InitConfig()
	if config.Config == nil {
		log.Warn("no config file found, using defaults")
		return
	}

	var found bool
	if c.DbPath, found = config.Config.String("db.path"); !found {
		log.Warn("db.path not specified, default %s", DefaultDbPath)
		c.DbPath = DefaultDbPath
	}
	if c.HttpPort, found = config.Config.Int("http.port"); !found {
		log.Warn("http.port not specified, default %d", DefaultHttpPort)
		c.HttpPort = DefaultHttpPort
	}
	if c.MaxClients, found = config.Config.Int("http.maxclients"); !found {
		c.MaxClients = DefaultMaxClients
	}
	c.StaticDir = config.Config.StringDefault("static.dir", DefaultStaticDir)

	c.LogDir = config.Config.StringDefault("log.dir", "")
	c.LogModule = config.Config.StringDefault("log.module", "admin")
	c.LogLevel = config.Config.StringDefault("log.level", "INFO")

	if maxNum, found := config.Config.Int("max.work.num"); !found {
		c.MaxWorkNum = DefaultMaxWorkNum
	} else {
		c.MaxWorkNum = uint64(maxNum)
	}
	if maxLen, found := config.Config.Int("max.taskqueue.len"); !found {
		c.MaxTaskQueueLen = DefaultMaxTaskQueueLen
	} else {
		c.MaxTaskQueueLen = uint64(maxLen)
	}

	c.OpenMetric = config.Config.BoolDefault("metrics.flag", false)
	c.MetricIntervalSec = config.Config.IntDefault("metrics.intervalsec", DefaultMetricIntervalSec)
}
