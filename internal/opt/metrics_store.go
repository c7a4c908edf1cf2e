package opt

import "sync"

type key struct {
	Scenario string
	Algo     string
}

var (
	mu    sync.Mutex
	store = map[key]Metrics{}
)

// RecordMetrics keeps the latest run metrics per scenario and algorithm in
// process, for the debug endpoints.
func RecordMetrics(scenario, algo string, m Metrics) {
	mu.Lock()
	store[key{Scenario: scenario, Algo: algo}] = m
	mu.Unlock()
}

func GetMetrics(scenario string) map[string]Metrics {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]Metrics{}
	for k, v := range store {
		if k.Scenario == scenario {
			out[k.Algo] = v
		}
	}
	return out
}
