package mysql

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"AgentCoin-Sim/deploy/migrations"
	"AgentCoin-Sim/internal/ledger"
)

// ErrUnsupportedDriver 表示配置了未知的归档驱动。
var ErrUnsupportedDriver = errors.New("暂不支持的归档驱动")

// maxMemoryRecords 限制内存归档保留的记录数量。
const maxMemoryRecords = 512

// MemoryArchive 使用本地 JSON 行文件模拟 MySQL 归档，方便迭代开发。
type MemoryArchive struct {
	mu       sync.RWMutex
	dataFile string
	records  []ledger.Transaction
}

// NewMemoryArchive 创建一个文件落地的内存归档。
func NewMemoryArchive(dataDir string) (*MemoryArchive, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	path := filepath.Join(dataDir, "transactions.log")
	archive := &MemoryArchive{dataFile: path}
	if err := archive.loadFromDisk(); err != nil {
		return nil, err
	}
	return archive, nil
}

// Record 以追加写的方式记录交易。
func (m *MemoryArchive) Record(_ context.Context, tx *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := os.OpenFile(m.dataFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("打开归档文件失败: %w", err)
	}
	defer file.Close()

	encoded, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("序列化交易失败: %w", err)
	}
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("写入归档文件失败: %w", err)
	}

	m.records = append([]ledger.Transaction{*tx}, m.records...)
	if len(m.records) > maxMemoryRecords {
		m.records = m.records[:maxMemoryRecords]
	}
	return nil
}

// ListLatest 返回最近归档的交易，按时间倒序排列。
func (m *MemoryArchive) ListLatest(_ context.Context, limit int) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.records) {
		limit = len(m.records)
	}
	results := make([]ledger.Transaction, limit)
	copy(results, m.records[:limit])
	return results, nil
}

func (m *MemoryArchive) loadFromDisk() error {
	file, err := os.OpenFile(m.dataFile, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("读取归档文件失败: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var restored []ledger.Transaction
	for scanner.Scan() {
		var tx ledger.Transaction
		if err := json.Unmarshal(scanner.Bytes(), &tx); err != nil {
			continue
		}
		restored = append([]ledger.Transaction{tx}, restored...)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("解析归档文件失败: %w", err)
	}

	if len(restored) > maxMemoryRecords {
		restored = restored[:maxMemoryRecords]
	}
	if len(restored) > 0 {
		m.records = restored
	}
	return nil
}

// SQLArchive 使用真实的 MySQL 数据库归档交易。
type SQLArchive struct {
	db *sql.DB
}

// NewSQLArchive 创建连接池并初始化数据表。
func NewSQLArchive(dsn string) (*SQLArchive, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("连接 MySQL 失败: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("无法连接到 MySQL: %w", err)
	}

	archive := &SQLArchive{db: db}
	if err := archive.initSchema(); err != nil {
		return nil, err
	}
	return archive, nil
}

// initSchema 按文件名顺序执行内嵌的迁移脚本。
func (s *SQLArchive) initSchema() error {
	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		return fmt.Errorf("读取迁移文件失败: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		script, err := migrations.Files.ReadFile(entry.Name())
		if err != nil {
			return fmt.Errorf("读取迁移文件 %s 失败: %w", entry.Name(), err)
		}
		if _, err := s.db.Exec(string(script)); err != nil {
			return fmt.Errorf("执行迁移 %s 失败: %w", entry.Name(), err)
		}
	}
	return nil
}

// Record 将交易写入 MySQL。
func (s *SQLArchive) Record(ctx context.Context, tx *ledger.Transaction) error {
	const stmt = `INSERT INTO transactions
        (id, description, amount, quality, created_at)
        VALUES (?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, stmt,
		tx.ID,
		tx.Description,
		tx.Amount,
		string(tx.Quality),
		tx.Timestamp,
	); err != nil {
		return fmt.Errorf("写入 MySQL 失败: %w", err)
	}
	return nil
}

// ListLatest 查询最近归档的若干笔交易。
func (s *SQLArchive) ListLatest(ctx context.Context, limit int) ([]ledger.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, description, amount, quality, created_at
        FROM transactions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询归档交易失败: %w", err)
	}
	defer rows.Close()

	var records []ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		var quality string
		if err := rows.Scan(&tx.ID, &tx.Description, &tx.Amount, &quality, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("解析归档交易失败: %w", err)
		}
		tx.Quality = ledger.Quality(quality)
		records = append(records, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历归档交易失败: %w", err)
	}
	return records, nil
}

// Close 关闭底层数据库连接。
func (s *SQLArchive) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
