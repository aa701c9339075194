package server

import (
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/netutil"

	"github.com/mistermingming/ProcurementManagement/util/log"
	"github.com/mistermingming/ProcurementManagement/util/metrics"
)

type ServerConfig struct {
	Ip        string
	Port      string
	Version   string
	ConnLimit int
}

type ServiceHttpHandler struct {
	Verifier func(w http.ResponseWriter, r *http.Request) bool
	Handler  func(w http.ResponseWriter, r *http.Request)
}

// Server is a http server
type Server struct {
	name    string
	ip      string
	port    string
	version string

	connLimit int
	l         net.Listener
	closed    int64

	handlers       map[string]ServiceHttpHandler
	defaultHandler http.Handler

	metricMeter *metrics.MetricMeter
}

// NewServer creates the server with given configuration.
func NewServer() *Server {
	return &Server{name: "", handlers: nil}
}

func (s *Server) Init(name string, config *ServerConfig, output metrics.Output) {
	if config == nil {
		panic("invalid server config")
	}
	s.name = name
	s.ip = config.Ip
	s.port = config.Port
	s.version = config.Version
	s.connLimit = config.ConnLimit
	s.handlers = make(map[string]ServiceHttpHandler, 10)
	if output != nil {
		s.metricMeter = metrics.NewMetricMeter(s.name+s.ip+":"+s.port, output)
	}

	s.Handle("/debug/ping", ServiceHttpHandler{Handler: func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}})
	s.Handle("/debug/pprof/", ServiceHttpHandler{Handler: pprof.Index})
	s.Handle("/debug/pprof/cmdline", ServiceHttpHandler{Handler: pprof.Cmdline})
	s.Handle("/debug/pprof/profile", ServiceHttpHandler{Handler: pprof.Profile})
	s.Handle("/debug/pprof/symbol", ServiceHttpHandler{Handler: pprof.Symbol})
	s.Handle("/debug/pprof/trace", ServiceHttpHandler{Handler: pprof.Trace})
	s.Handle("/debug/gc", ServiceHttpHandler{Handler: func(w http.ResponseWriter, r *http.Request) {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		fmt.Fprintf(w, "NumGC: %d\nPauseTotal: %v\nHeapAlloc: %d\nHeapObjects: %d\n",
			ms.NumGC, time.Duration(ms.PauseTotalNs), ms.HeapAlloc, ms.HeapObjects)
	}})
}

func (s *Server) Handle(name string, handler ServiceHttpHandler) {
	if _, ok := s.handlers[name]; ok {
		panic("duplicate register http handler")
	}
	s.handlers[name] = handler
}

// HandleDefault registers the handler used when no registered path matches,
// e.g. a static file server.
func (s *Server) HandleDefault(handler http.Handler) {
	s.defaultHandler = handler
}

// Close closes the server.
func (s *Server) Close() {
	if !atomic.CompareAndSwapInt64(&s.closed, 0, 1) {
		// server is already closed
		return
	}

	log.Info("closing server")
	if s.metricMeter != nil {
		s.metricMeter.Stop()
	}
	if s.l != nil {
		s.l.Close()
	}
	log.Info("close server")
}

// isClosed checks whether server is closed or not.
func (s *Server) isClosed() bool {
	return atomic.LoadInt64(&s.closed) == 1
}

// Run runs the server.
func (s *Server) Run() {
	host := s.ip + ":" + s.port
	l, err := net.Listen("tcp", host)
	if err != nil {
		log.Fatal("Listen: %v", err)
	}
	if s.connLimit > 0 {
		l = netutil.LimitListener(l, s.connLimit)
	}
	s.l = l

	if err = http.Serve(l, s); err != nil {
		if s.isClosed() {
			return
		}
		log.Fatal("http serve failed: %s", err.Error())
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if v := recover(); v != nil {
			log.Error("handler panic: %v", v)
		}
	}()
	if s.isClosed() {
		return
	}

	method := s.getReqMethod(r.RequestURI)
	handler := s.handlers[method]
	if handler.Handler == nil {
		if strings.HasPrefix(method, "/debug/pprof/") {
			handler = s.handlers["/debug/pprof/"]
		}
		if handler.Handler == nil {
			if s.defaultHandler != nil {
				s.defaultHandler.ServeHTTP(w, r)
				return
			}
			NotFound(w, r)
			return
		}
	}
	if handler.Verifier != nil {
		if ok := handler.Verifier(w, r); !ok {
			return
		}
	}
	start := time.Now()
	handler.Handler(w, r)
	if s.metricMeter != nil {
		s.metricMeter.AddApiWithDelay(method, true, time.Since(start))
	}
}

func (s *Server) Name() string {
	return s.name
}

func (s *Server) getReqMethod(url string) string {
	var invalidMethod string
	index := strings.Index(url, "?")
	if index <= 0 {
		index = len(url)
	}
	method := url[0:index]
	if len(method) <= 0 {
		log.Warn("check method failed:handle[%s]", method)
		return invalidMethod
	}
	return method
}

// Helper handlers

// Error replies to the request with the specified error message and HTTP code.
// It does not otherwise end the request; the caller should ensure no further
// writes are done to w.
// The error message should be plain text.
func Error(w http.ResponseWriter, error string, code int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	fmt.Fprintln(w, error)
}

// NotFound replies to the request with an HTTP 404 not found error.
func NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, "404 page not found", http.StatusNotFound)
}

// NotFoundHandler returns a simple request handler
// that replies to each request with a ``404 page not found'' reply.
func NotFoundHandler() ServiceHttpHandler { return ServiceHttpHandler{Handler: NotFound} }
