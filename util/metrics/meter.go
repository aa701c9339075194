package metrics

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type ApiMetric struct {
	name                   string
	numberOfRequest        int64
	numberOfErrResponse    int64
	summaryDelayOfResponse int64
	maxDelayOfResponse     time.Duration
	minDelayOfResponse     time.Duration
}

const (
	RUNNING = int32(1)
	STOPPED = int32(0)
)

type MetricMeter struct {
	// host or other name that is not repeated
	name  string
	run   int32
	mutex *sync.RWMutex

	metrics   map[string]*ApiMetric
	timestamp time.Time
	avgTotal  float64
	lats      []float64
	output    Output
}

func NewMetricMeter(name string, output Output) *MetricMeter {
	if output == nil {
		return nil
	}
	meter := &MetricMeter{
		name:      name,
		run:       STOPPED,
		mutex:     new(sync.RWMutex),
		metrics:   make(map[string]*ApiMetric),
		timestamp: time.Now(),
		output:    output,
		lats:      make([]float64, 0, 100000),
	}
	go meter.Run()
	return meter
}

func (m *MetricMeter) Run() {
	var interval, waitTime time.Duration
	if atomic.LoadInt32(&m.run) == STOPPED {
		atomic.StoreInt32(&m.run, RUNNING)

		m.timestamp = time.Now()
		interval = m.output.ReportInterval()
		waitTime = interval
		for atomic.LoadInt32(&m.run) == RUNNING {
			time.Sleep(waitTime)
			tag := time.Now()
			m.reportAndReset()
			waitTime = interval - time.Since(tag)
			if waitTime < 0 {
				waitTime = 0
			}
		}
	}
}

func (m *MetricMeter) Stop() {
	if m == nil {
		return
	}
	atomic.StoreInt32(&m.run, STOPPED)
}

func (m *MetricMeter) findMetric(method string) (*ApiMetric, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if metric, ok := m.metrics[method]; ok {
		return metric, true
	}
	return nil, false
}

func (m *MetricMeter) AddApi(reqMethod string, ack bool) {
	if m == nil {
		return
	}
	metric, ok := m.findMetric(reqMethod)
	if !ok {
		m.mutex.Lock()
		metric, ok = m.metrics[reqMethod]
		if !ok {
			metric = new(ApiMetric)
			metric.name = reqMethod
			m.metrics[reqMethod] = metric
		}
		m.mutex.Unlock()
	}

	atomic.AddInt64(&metric.numberOfRequest, 1)
	if !ack {
		atomic.AddInt64(&metric.numberOfErrResponse, 1)
	}
}

func (m *MetricMeter) AddApiWithDelay(reqMethod string, ack bool, delay time.Duration) {
	if m == nil {
		return
	}
	metric, ok := m.findMetric(reqMethod)
	if !ok {
		m.mutex.Lock()
		metric, ok = m.metrics[reqMethod]
		if !ok {
			metric = new(ApiMetric)
			metric.name = reqMethod
			metric.maxDelayOfResponse = delay
			metric.minDelayOfResponse = delay
			m.metrics[reqMethod] = metric
		}
		m.mutex.Unlock()
	}
	atomic.AddInt64(&metric.numberOfRequest, 1)
	if !ack {
		atomic.AddInt64(&metric.numberOfErrResponse, 1)
	}
	atomic.AddInt64(&metric.summaryDelayOfResponse, int64(delay))
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if metric.maxDelayOfResponse < delay {
		metric.maxDelayOfResponse = delay
	}
	if metric.minDelayOfResponse > delay {
		metric.minDelayOfResponse = delay
	}
	m.lats = append(m.lats, delay.Seconds())
	m.avgTotal += delay.Seconds()
}

type apiReport struct {
	Name     string  `json:"name"`
	Api      string  `json:"api"`
	Requests int64   `json:"requests"`
	Errors   int64   `json:"errors"`
	AvgDelay float64 `json:"avg_delay"`
	MaxDelay float64 `json:"max_delay"`
	MinDelay float64 `json:"min_delay"`
}

type summaryReport struct {
	Name       string             `json:"name"`
	Rps        float64            `json:"rps"`
	AvgLatency float64            `json:"avg_latency"`
	Pctl       map[string]float64 `json:"pctl,omitempty"`
}

func (m *MetricMeter) report(total time.Duration, lats []float64, avgTotal float64, metrics map[string]*ApiMetric) {
	sort.Float64s(lats)

	for api, metric := range metrics {
		avg := time.Duration(0)
		if metric.numberOfRequest > 0 {
			avg = time.Duration(metric.summaryDelayOfResponse / metric.numberOfRequest)
		}
		data, err := json.Marshal(&apiReport{
			Name:     m.name,
			Api:      api,
			Requests: metric.numberOfRequest,
			Errors:   metric.numberOfErrResponse,
			AvgDelay: avg.Seconds(),
			MaxDelay: metric.maxDelayOfResponse.Seconds(),
			MinDelay: metric.minDelayOfResponse.Seconds(),
		})
		if err != nil {
			continue
		}
		m.output.Report(data)
	}

	if len(lats) == 0 {
		return
	}
	summary := &summaryReport{
		Name:       m.name,
		Rps:        float64(len(lats)) / total.Seconds(),
		AvgLatency: avgTotal / float64(len(lats)),
		Pctl:       make(map[string]float64),
	}
	pctls := []int{500, 900, 950, 990, 999}
	for _, p := range pctls {
		idx := len(lats) * p / 1000
		if idx >= len(lats) {
			idx = len(lats) - 1
		}
		var tag string
		if p%10 == 0 {
			tag = fmt.Sprintf("tp%d", p/10)
		} else {
			tag = fmt.Sprintf("tp%d", p)
		}
		summary.Pctl[tag] = lats[idx]
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	m.output.Report(data)
}

func (m *MetricMeter) reportAndReset() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("metric report error: %v\n", r)
		}
	}()

	m.mutex.Lock()
	metrics := m.metrics
	total := time.Since(m.timestamp)
	avgTotal := m.avgTotal
	lats := m.lats
	m.metrics = make(map[string]*ApiMetric)
	m.timestamp = time.Now()
	m.lats = make([]float64, 0, 100000)
	m.avgTotal = 0
	m.mutex.Unlock()

	if len(metrics) == 0 {
		return
	}
	m.report(total, lats, avgTotal, metrics)
}
