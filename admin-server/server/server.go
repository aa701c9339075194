package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mistermingming/ProcurementManagement/engine"
	"github.com/mistermingming/ProcurementManagement/util/log"
	"github.com/mistermingming/ProcurementManagement/util/metrics"
	sserver "github.com/mistermingming/ProcurementManagement/util/server"
)

type Server struct {
	conf  *Config
	store *engine.Store

	httpServer *sserver.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	taskQueues  []chan Task
	workRecover chan int
}

func NewServer(conf *Config) (*Server, error) {
	store, err := engine.Open(conf.DbPath, engine.DefaultRegistry())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		conf:        conf,
		store:       store,
		ctx:         ctx,
		cancel:      cancel,
		workRecover: make(chan int, conf.MaxWorkNum),
	}
	s.startWorkers(int(conf.MaxWorkNum), int(conf.MaxTaskQueueLen))

	var output metrics.Output
	if conf.OpenMetric {
		output = metrics.NewLogOutput(time.Duration(conf.MetricIntervalSec) * time.Second)
	}
	s.httpServer = sserver.NewServer()
	s.httpServer.Init("admin", &sserver.ServerConfig{
		Ip:        "0.0.0.0",
		Port:      strconv.Itoa(conf.HttpPort),
		Version:   "v1",
		ConnLimit: conf.MaxClients,
	}, output)
	s.registerHandlers()
	return s, nil
}

func (s *Server) registerHandlers() {
	s.httpServer.Handle("/api/rows", sserver.ServiceHttpHandler{Handler: s.handleRows})
	s.httpServer.Handle("/api/rows/replace", sserver.ServiceHttpHandler{Handler: s.handleReplaceRows})
	s.httpServer.Handle("/api/rows/delete", sserver.ServiceHttpHandler{Handler: s.handleDeleteRow})
	s.httpServer.Handle("/api/tableinfo", sserver.ServiceHttpHandler{Handler: s.handleTableInfo})
	s.httpServer.Handle("/api/options", sserver.ServiceHttpHandler{Handler: s.handleOptions})
	s.httpServer.Handle("/api/quote", sserver.ServiceHttpHandler{Handler: s.handleQuoteSubmit})
	s.httpServer.Handle("/api/quotes", sserver.ServiceHttpHandler{Handler: s.handleQuotes})
	s.httpServer.Handle("/debug/status", sserver.ServiceHttpHandler{Handler: s.handleStatus})
	s.httpServer.Handle("/", sserver.ServiceHttpHandler{Handler: func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/quote.html", http.StatusFound)
	}})
	if len(s.conf.StaticDir) > 0 {
		s.httpServer.HandleDefault(http.FileServer(http.Dir(s.conf.StaticDir)))
	}
}

func (s *Server) Run() {
	log.Info("admin server listening on :%d", s.conf.HttpPort)
	s.httpServer.Run()
}

func (s *Server) Quit() {
	s.cancel()
	s.httpServer.Close()
	s.wg.Wait()
	if err := s.store.Close(); err != nil {
		log.Warn("close store failed, err[%v]", err)
	}
}
