package main

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/mistermingming/ProcurementManagement/admin-server/server"
	"github.com/mistermingming/ProcurementManagement/util/log"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	// load config file
	conf := new(server.Config)
	conf.LoadConfig()
	log.InitFileLog(conf.LogDir, conf.LogModule, conf.LogLevel)
	srv, err := server.NewServer(conf)
	if err != nil {
		log.Fatal("init server failed, err[%v]", err)
		return
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	go func() {
		sig := <-signalCh
		log.Warn("signal[%v] caught. server exit...", sig)
		srv.Quit()
		time.Sleep(time.Second)
		os.Exit(0)
	}()

	srv.Run()
}
