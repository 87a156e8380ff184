package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.uber.org/zap"
)

// ProviderStats 单个提供商的调用统计
type ProviderStats struct {
	ProviderName       string           `json:"provider_name"`
	ModelName          string           `json:"model_name"`
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	FailedRequests     int64            `json:"failed_requests"`
	TotalTokensIn      int64            `json:"total_tokens_in"`
	TotalTokensOut     int64            `json:"total_tokens_out"`
	TotalCharacters    int64            `json:"total_characters"`
	MinLatency         time.Duration    `json:"min_latency"`
	MaxLatency         time.Duration    `json:"max_latency"`
	TotalLatency       time.Duration    `json:"total_latency"`
	ErrorTypes         map[string]int64 `json:"error_types"`
	FirstRequestTime   time.Time        `json:"first_request_time"`
	LastRequestTime    time.Time        `json:"last_request_time"`
}

// RequestResult 单次请求结果
type RequestResult struct {
	Success    bool
	Latency    time.Duration
	TokensIn   int
	TokensOut  int
	Characters int
	ErrorType  string
}

// SuccessRate 成功率（百分比）
func (ps *ProviderStats) SuccessRate() float64 {
	if ps.TotalRequests == 0 {
		return 0
	}
	return float64(ps.SuccessfulRequests) / float64(ps.TotalRequests) * 100
}

// AverageLatency 平均延迟
func (ps *ProviderStats) AverageLatency() time.Duration {
	if ps.TotalRequests == 0 {
		return 0
	}
	return ps.TotalLatency / time.Duration(ps.TotalRequests)
}

// StatsManager 统计管理器
type StatsManager struct {
	stats  map[string]*ProviderStats // key: provider:model
	dbPath string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStatsManager 创建统计管理器，dbPath 为空时不持久化
func NewStatsManager(dbPath string, logger *zap.Logger) *StatsManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsManager{
		stats:  make(map[string]*ProviderStats),
		dbPath: dbPath,
		logger: logger,
	}
}

func key(provider, model string) string {
	return fmt.Sprintf("%s:%s", provider, model)
}

// RecordRequest 记录请求结果
func (sm *StatsManager) RecordRequest(provider, model string, result RequestResult) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	k := key(provider, model)
	s, ok := sm.stats[k]
	if !ok {
		s = &ProviderStats{
			ProviderName: provider,
			ModelName:    model,
			ErrorTypes:   make(map[string]int64),
		}
		sm.stats[k] = s
	}

	now := time.Now()
	if s.FirstRequestTime.IsZero() {
		s.FirstRequestTime = now
	}
	s.LastRequestTime = now

	s.TotalRequests++
	s.TotalLatency += result.Latency
	if s.MinLatency == 0 || result.Latency < s.MinLatency {
		s.MinLatency = result.Latency
	}
	if result.Latency > s.MaxLatency {
		s.MaxLatency = result.Latency
	}

	if result.Success {
		s.SuccessfulRequests++
		s.TotalTokensIn += int64(result.TokensIn)
		s.TotalTokensOut += int64(result.TokensOut)
		s.TotalCharacters += int64(result.Characters)
		return
	}

	s.FailedRequests++
	if result.ErrorType != "" {
		s.ErrorTypes[result.ErrorType]++
	}
}

// GetStats 获取统计快照
func (sm *StatsManager) GetStats(provider, model string) *ProviderStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.stats[key(provider, model)]
	if !ok {
		return nil
	}
	return s.clone()
}

// GetAllStats 获取所有统计快照
func (sm *StatsManager) GetAllStats() map[string]*ProviderStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	out := make(map[string]*ProviderStats, len(sm.stats))
	for k, s := range sm.stats {
		out[k] = s.clone()
	}
	return out
}

func (ps *ProviderStats) clone() *ProviderStats {
	c := *ps
	c.ErrorTypes = make(map[string]int64, len(ps.ErrorTypes))
	for k, v := range ps.ErrorTypes {
		c.ErrorTypes[k] = v
	}
	return &c
}

// SaveToDB 保存统计数据
func (sm *StatsManager) SaveToDB() error {
	if sm.dbPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(sm.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(sm.GetAllStats(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats data: %w", err)
	}

	tempPath := sm.dbPath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	if err := os.Rename(tempPath, sm.dbPath); err != nil {
		return fmt.Errorf("failed to rename stats file: %w", err)
	}

	sm.logger.Debug("stats saved", zap.String("path", sm.dbPath))
	return nil
}

// LoadFromDB 加载统计数据，文件不存在时从零开始
func (sm *StatsManager) LoadFromDB() error {
	if sm.dbPath == "" {
		return nil
	}

	data, err := os.ReadFile(sm.dbPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	var loaded map[string]*ProviderStats
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to unmarshal stats data: %w", err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for k, s := range loaded {
		if s.ErrorTypes == nil {
			s.ErrorTypes = make(map[string]int64)
		}
		sm.stats[k] = s
	}
	return nil
}

// RenderTable 输出统计表格
func (sm *StatsManager) RenderTable(w io.Writer) {
	all := sm.GetAllStats()
	if len(all) == 0 {
		fmt.Fprintln(w, "No statistics available.")
		return
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Provider Statistics")
	t.AppendHeader(table.Row{"Provider", "Model", "Requests", "Success", "Avg Latency", "Max Latency", "Chars", "Tokens In/Out", "Errors"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	for _, k := range keys {
		s := all[k]
		t.AppendRow(table.Row{
			s.ProviderName,
			s.ModelName,
			s.TotalRequests,
			fmt.Sprintf("%.1f%%", s.SuccessRate()),
			s.AverageLatency().Round(time.Millisecond),
			s.MaxLatency.Round(time.Millisecond),
			s.TotalCharacters,
			fmt.Sprintf("%d/%d", s.TotalTokensIn, s.TotalTokensOut),
			formatErrors(s.ErrorTypes),
		})
	}
	t.Render()
}

func formatErrors(types map[string]int64) string {
	if len(types) == 0 {
		return "-"
	}
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	out := ""
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%d", name, types[name])
	}
	return out
}
