package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"time"
)

// Engine counters. Registered up front so updates never race metric
// creation.
const (
	ActiveConnections     = "ActiveConnections"
	OnlineUsers           = "OnlineUsers"
	MessagesSent          = "MessagesSent"
	DuplicateMessages     = "DuplicateMessages"
	OfflineQueuedMessages = "OfflineQueuedMessages"
	ActiveRooms           = "ActiveRooms"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

type StatsUpdater struct {
	vars       *expvar.Map
	updateChan chan *metricsUpdateReq
}

type metricsUpdateReq struct {
	name  string
	value int
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	expvarData := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		expvarData[kv.Key] = value
	})

	json.NewEncoder(w).Encode(expvarData)
}

// NewStatsUpdater creates a new stats updater instance and mounts its
// expvar handler on the mux.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		updateChan: make(chan *metricsUpdateReq, 512),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))
	su.vars = expvar.NewMap("chat-engine-stats")
	su.initializeMetrics()

	return su
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))
}

func (su *StatsUpdater) updateMetrics() {
	for req := range su.updateChan {
		metric := su.vars.Get(req.name)
		if metric == nil {
			// tolerate unregistered names rather than crashing the
			// process over telemetry
			su.vars.Set(req.name, expvar.NewInt(req.name))
			metric = su.vars.Get(req.name)
		}

		if counter, ok := metric.(*expvar.Int); ok {
			counter.Add(int64(req.value))
		}
	}
}

func (su *StatsUpdater) Incr(name string) {
	select {
	case su.updateChan <- &metricsUpdateReq{name: name, value: 1}:
	default:
	}
}

func (su *StatsUpdater) Decr(name string) {
	select {
	case su.updateChan <- &metricsUpdateReq{name: name, value: -1}:
	default:
	}
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, expvar.NewInt(name))
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

func (su *StatsUpdater) Stop() {
	close(su.updateChan)
}
