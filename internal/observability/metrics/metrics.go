package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type cycleKey struct {
	action string
	status string
}

type histogram struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// collector 聚合智能体的周期指标与钱包水位。
type collector struct {
	mu      sync.Mutex
	cycles  map[cycleKey]uint64
	oracle  *histogram
	balance float64
	debt    float64
	assets  int
}

var agentCollector = &collector{
	cycles: make(map[cycleKey]uint64),
	oracle: newHistogram(),
}

// ObserveCycle 记录一次完成的决策周期。
func ObserveCycle(action, status string, oracleLatency time.Duration) {
	agentCollector.mu.Lock()
	defer agentCollector.mu.Unlock()

	agentCollector.cycles[cycleKey{action: action, status: status}]++
	agentCollector.oracle.observe(oracleLatency.Seconds())
}

// SetWallet 更新余额、负债与资产数量的瞬时值。
func SetWallet(balance, debt float64, assets int) {
	agentCollector.mu.Lock()
	defer agentCollector.mu.Unlock()

	agentCollector.balance = balance
	agentCollector.debt = debt
	agentCollector.assets = assets
}

func newHistogram() *histogram {
	buckets := []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) observe(value float64) {
	h.count++
	h.sum += value
	for idx, bound := range h.buckets {
		if value <= bound {
			for i := idx; i < len(h.counts); i++ {
				h.counts[i]++
			}
			return
		}
	}
	// 超出最后一个桶的值只计入 +Inf（即 h.count）。
}

// Handler 以 Prometheus 文本格式暴露指标。
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = fmt.Fprint(w, agentCollector.render())
	})
}

func (c *collector) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	type cycleMetric struct {
		cycleKey
		value uint64
	}
	cycles := make([]cycleMetric, 0, len(c.cycles))
	for key, value := range c.cycles {
		cycles = append(cycles, cycleMetric{cycleKey: key, value: value})
	}
	sort.Slice(cycles, func(i, j int) bool {
		if cycles[i].action == cycles[j].action {
			return cycles[i].status < cycles[j].status
		}
		return cycles[i].action < cycles[j].action
	})

	var builder strings.Builder
	builder.Grow(1024)

	builder.WriteString("# HELP agentsim_cycles_total Total number of completed decision cycles.\n")
	builder.WriteString("# TYPE agentsim_cycles_total counter\n")
	for _, metric := range cycles {
		builder.WriteString(fmt.Sprintf("agentsim_cycles_total{action=\"%s\",status=\"%s\"} %d\n",
			escape(metric.action), escape(metric.status), metric.value))
	}

	builder.WriteString("# HELP agentsim_oracle_duration_seconds Decision oracle round-trip latency in seconds.\n")
	builder.WriteString("# TYPE agentsim_oracle_duration_seconds histogram\n")
	for idx, bound := range c.oracle.buckets {
		builder.WriteString(fmt.Sprintf("agentsim_oracle_duration_seconds_bucket{le=\"%s\"} %d\n",
			formatFloat(bound), c.oracle.counts[idx]))
	}
	builder.WriteString(fmt.Sprintf("agentsim_oracle_duration_seconds_bucket{le=\"+Inf\"} %d\n", c.oracle.count))
	builder.WriteString(fmt.Sprintf("agentsim_oracle_duration_seconds_sum %s\n", formatFloat(c.oracle.sum)))
	builder.WriteString(fmt.Sprintf("agentsim_oracle_duration_seconds_count %d\n", c.oracle.count))

	builder.WriteString("# HELP agentsim_wallet_balance Current AGENT-COIN balance.\n")
	builder.WriteString("# TYPE agentsim_wallet_balance gauge\n")
	builder.WriteString(fmt.Sprintf("agentsim_wallet_balance %s\n", formatFloat(c.balance)))

	builder.WriteString("# HELP agentsim_wallet_debt Current outstanding debt.\n")
	builder.WriteString("# TYPE agentsim_wallet_debt gauge\n")
	builder.WriteString(fmt.Sprintf("agentsim_wallet_debt %s\n", formatFloat(c.debt)))

	builder.WriteString("# HELP agentsim_inventory_assets Number of assets currently owned.\n")
	builder.WriteString("# TYPE agentsim_inventory_assets gauge\n")
	builder.WriteString(fmt.Sprintf("agentsim_inventory_assets %d\n", c.assets))

	return builder.String()
}

func escape(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
