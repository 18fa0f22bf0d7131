// Package metrics 提供Prometheus文本格式的监控指标
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// 指标名称
const (
	HTTPRequestsTotal   = "radioplan_http_requests_total"
	HTTPRequestDuration = "radioplan_http_request_duration_seconds"
	ResolutionsTotal    = "radioplan_resolutions_total"
	ResolutionDuration  = "radioplan_resolution_duration_seconds"
	ConflictsDetected   = "radioplan_conflicts_detected"
	UnfilledSlots       = "radioplan_unfilled_slots"
	SnapshotsSavedTotal = "radioplan_snapshots_saved_total"
	EquityScore         = "radioplan_equity_score"
	DBConnections       = "radioplan_db_connections"
)

// Registry 指标注册表
type Registry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

var (
	registry *Registry
	once     sync.Once
)

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// GetRegistry 获取全局注册表
func GetRegistry() *Registry {
	once.Do(func() {
		registry = NewRegistry()
		registerDefaults(registry)
	})
	return registry
}

// registerDefaults 注册排班服务的默认指标
func registerDefaults(r *Registry) {
	r.NewCounter(HTTPRequestsTotal, "HTTP请求总数", []string{"method", "path", "status"})
	r.NewHistogram(HTTPRequestDuration, "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0})

	// 周/月排班解析
	r.NewCounter(ResolutionsTotal, "排班解析次数", []string{"scope"})
	r.NewHistogram(ResolutionDuration, "排班解析耗时",
		[]string{"scope"},
		[]float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0})

	r.NewGauge(ConflictsDetected, "最近一次解析检测到的冲突数", []string{"type"})
	r.NewGauge(UnfilledSlots, "最近一次解析未分配的排班位数", []string{})
	r.NewCounter(SnapshotsSavedTotal, "保存的配置快照数", []string{})
	r.NewGauge(EquityScore, "活动班次公平性评分", []string{"activity"})
	r.NewGauge(DBConnections, "数据库连接数", []string{"state"})
}

// NewCounter 创建计数器
func (r *Registry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := &Counter{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.counters[name] = counter
	return counter
}

// NewGauge 创建仪表盘
func (r *Registry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge := &Gauge{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.gauges[name] = gauge
	return gauge
}

// NewHistogram 创建直方图
func (r *Registry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	histogram := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = histogram
	return histogram
}

// GetCounter 获取计数器
func (r *Registry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *Registry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *Registry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Inc 增加
func (g *Gauge) Inc(labelValues ...string) {
	g.Add(1, labelValues...)
}

// Dec 减少
func (g *Gauge) Dec(labelValues ...string) {
	g.Add(-1, labelValues...)
}

// Add 增加指定值
func (g *Gauge) Add(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Reset 清空所有标签的值
func (g *Gauge) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values = make(map[string]float64)
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}

	// 只记在第一个满足的桶，输出时累加
	idx := len(h.Buckets)
	for i, bucket := range h.Buckets {
		if value <= bucket {
			idx = i
			break
		}
	}
	h.counts[key][idx]++
	h.sums[key] += value
}

// Count 观测次数
func (h *Histogram) Count(labelValues ...string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, n := range h.counts[labelKey(labelValues)] {
		total += n
	}
	return total
}

// labelKey 生成标签键
func labelKey(labels []string) string {
	return strings.Join(labels, ",")
}

// formatLabels 格式化标签
func formatLabels(names []string, key string) string {
	var vals []string
	if key != "" {
		vals = strings.Split(key, ",")
	}
	parts := make([]string, len(names))
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		parts[i] = fmt.Sprintf("%s=%q", name, val)
	}
	return strings.Join(parts, ",")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func series(name string, labels []string, key, extra string) string {
	parts := make([]string, 0, 2)
	if key != "" {
		parts = append(parts, formatLabels(labels, key))
	}
	if extra != "" {
		parts = append(parts, extra)
	}
	if len(parts) == 0 {
		return name
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}

// WriteTo 以Prometheus文本格式输出，指标按名称排序
func (r *Registry) WriteTo(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedNames(r.counters) {
		c := r.counters[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", c.Name, c.Help, c.Name)
		c.mu.RLock()
		for _, key := range sortedKeys(c.values) {
			fmt.Fprintf(w, "%s %g\n", series(c.Name, c.Labels, key, ""), c.values[key])
		}
		c.mu.RUnlock()
	}

	for _, name := range sortedNames(r.gauges) {
		g := r.gauges[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", g.Name, g.Help, g.Name)
		g.mu.RLock()
		for _, key := range sortedKeys(g.values) {
			fmt.Fprintf(w, "%s %g\n", series(g.Name, g.Labels, key, ""), g.values[key])
		}
		g.mu.RUnlock()
	}

	for _, name := range sortedNames(r.histograms) {
		h := r.histograms[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.Name, h.Help, h.Name)
		h.mu.RLock()
		keys := make([]string, 0, len(h.counts))
		for k := range h.counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			counts := h.counts[key]
			cumulative := 0
			for i, bucket := range h.Buckets {
				cumulative += counts[i]
				le := "le=\"" + strconv.FormatFloat(bucket, 'g', -1, 64) + "\""
				fmt.Fprintf(w, "%s %d\n", series(h.Name+"_bucket", h.Labels, key, le), cumulative)
			}
			cumulative += counts[len(h.Buckets)]
			fmt.Fprintf(w, "%s %d\n", series(h.Name+"_bucket", h.Labels, key, "le=\"+Inf\""), cumulative)
			fmt.Fprintf(w, "%s %g\n", series(h.Name+"_sum", h.Labels, key, ""), h.sums[key])
			fmt.Fprintf(w, "%s %d\n", series(h.Name+"_count", h.Labels, key, ""), cumulative)
		}
		h.mu.RUnlock()
	}
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Handler 返回Prometheus格式的指标HTTP处理器
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		GetRegistry().WriteTo(w)
	})
}

// RecordRequestMetrics 记录请求指标
func RecordRequestMetrics(method, path string, status int, duration time.Duration) {
	r := GetRegistry()
	if c := r.GetCounter(HTTPRequestsTotal); c != nil {
		c.Inc(method, path, strconv.Itoa(status))
	}
	if h := r.GetHistogram(HTTPRequestDuration); h != nil {
		h.Observe(duration.Seconds(), method, path)
	}
}

// RecordResolution 记录一次排班解析，scope 为 week 或 month
func RecordResolution(scope string, duration time.Duration) {
	r := GetRegistry()
	if c := r.GetCounter(ResolutionsTotal); c != nil {
		c.Inc(scope)
	}
	if h := r.GetHistogram(ResolutionDuration); h != nil {
		h.Observe(duration.Seconds(), scope)
	}
}

// RecordConflicts 按类型记录最近一次检测结果
func RecordConflicts(byType map[string]int, unfilled int) {
	r := GetRegistry()
	if g := r.GetGauge(ConflictsDetected); g != nil {
		g.Reset()
		for t, n := range byType {
			g.Set(float64(n), t)
		}
	}
	if g := r.GetGauge(UnfilledSlots); g != nil {
		g.Set(float64(unfilled))
	}
}

// RecordEquity 记录活动公平性评分
func RecordEquity(activityID string, score float64) {
	if g := GetRegistry().GetGauge(EquityScore); g != nil {
		g.Set(score, activityID)
	}
}

// RecordSnapshotSaved 记录快照保存
func RecordSnapshotSaved() {
	if c := GetRegistry().GetCounter(SnapshotsSavedTotal); c != nil {
		c.Inc()
	}
}

// RecordDBStats 记录连接池状态
func RecordDBStats(open, inUse, idle int) {
	if g := GetRegistry().GetGauge(DBConnections); g != nil {
		g.Set(float64(open), "open")
		g.Set(float64(inUse), "in_use")
		g.Set(float64(idle), "idle")
	}
}
