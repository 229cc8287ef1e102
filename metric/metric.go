// Package metric aggregates render statistics per node type. Statistics
// are published with expvar under the "phonograph" map.
package metric

import (
	"encoding/json"
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// Published names of statistics.
const (
	// Nodes is the number of metered nodes of the type.
	Nodes = "Nodes"
	// Quanta is the number of processed quanta.
	Quanta = "Quanta"
	// Frames is the number of processed frames.
	Frames = "Frames"
	// Signal is the duration of processed signal.
	Signal = "Signal"
	// ProcessTime is the time spent in process calls.
	ProcessTime = "ProcessTime"
	// MaxProcessTime is the longest single process call.
	MaxProcessTime = "MaxProcessTime"
	// Load is the ratio of process time to signal duration. Values above
	// one mean the type can't keep up with realtime.
	Load = "Load"
	// SilentQuanta is the number of quanta replaced with silence because
	// the graph lock wasn't available in time.
	SilentQuanta = "SilentQuanta"
)

var (
	published = expvar.NewMap("phonograph")

	registryMu sync.Mutex
	registry   = map[string]*Stats{}
)

// MeasureFunc records one process call. It doesn't allocate and can be
// called on the render goroutine.
type MeasureFunc func(frames int64, took time.Duration)

// Stats are statistics of one node type.
type Stats struct {
	nodes       atomic.Int64
	quanta      atomic.Int64
	frames      atomic.Int64
	signal      atomic.Int64
	processTime atomic.Int64
	maxProcess  atomic.Int64
	silent      atomic.Int64
}

// Meter registers a node and returns the function measuring its
// process calls. Signal duration is derived from sampleRate.
func Meter(node any, sampleRate int) MeasureFunc {
	s := statsOf(node)
	s.nodes.Add(1)
	var (
		lastFrames int64
		lastSignal int64
	)
	return func(frames int64, took time.Duration) {
		if frames != lastFrames {
			lastFrames = frames
			lastSignal = int64(signalOf(frames, sampleRate))
		}
		s.quanta.Add(1)
		s.frames.Add(frames)
		s.signal.Add(lastSignal)
		s.processTime.Add(int64(took))
		for {
			cur := s.maxProcess.Load()
			if int64(took) <= cur || s.maxProcess.CompareAndSwap(cur, int64(took)) {
				break
			}
		}
	}
}

// Silence returns the function counting silent quanta of node type.
func Silence(node any) func() {
	s := statsOf(node)
	return func() {
		s.silent.Add(1)
	}
}

// Get returns statistics of node type. It's nil when the type was never
// metered.
func Get(node any) map[string]string {
	registryMu.Lock()
	s, ok := registry[typeOf(node)]
	registryMu.Unlock()
	if !ok {
		return nil
	}
	return s.Values()
}

// GetAll returns statistics of every metered node type.
func GetAll() map[string]map[string]string {
	registryMu.Lock()
	defer registryMu.Unlock()
	all := make(map[string]map[string]string, len(registry))
	for t, s := range registry {
		all[t] = s.Values()
	}
	return all
}

// Values formats statistics by their names. Statistics which weren't
// recorded are omitted.
func (s *Stats) Values() map[string]string {
	v := map[string]string{
		Nodes: fmt.Sprint(s.nodes.Load()),
	}
	if q := s.quanta.Load(); q > 0 {
		signal := time.Duration(s.signal.Load())
		process := time.Duration(s.processTime.Load())
		v[Quanta] = fmt.Sprint(q)
		v[Frames] = fmt.Sprint(s.frames.Load())
		v[Signal] = signal.String()
		v[ProcessTime] = process.String()
		v[MaxProcessTime] = time.Duration(s.maxProcess.Load()).String()
		if signal > 0 {
			v[Load] = fmt.Sprintf("%.4f", float64(process)/float64(signal))
		}
	}
	if n := s.silent.Load(); n > 0 {
		v[SilentQuanta] = fmt.Sprint(n)
	}
	return v
}

// String implements expvar.Var.
func (s *Stats) String() string {
	b, err := json.Marshal(s.Values())
	if err != nil {
		return "{}"
	}
	return string(b)
}

func statsOf(node any) *Stats {
	t := typeOf(node)
	registryMu.Lock()
	defer registryMu.Unlock()
	if s, ok := registry[t]; ok {
		return s
	}
	s := &Stats{}
	registry[t] = s
	published.Set(t, s)
	return s
}

func typeOf(node any) string {
	rt := reflect.TypeOf(node)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil {
		return "<nil>"
	}
	return rt.String()
}

func signalOf(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
