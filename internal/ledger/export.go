package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	xerrors "AgentCoin-Sim/internal/errors"
)

// exportTimeLayout 与面板导出保持一致：UTC、毫秒精度的 ISO-8601。
const exportTimeLayout = "2006-01-02T15:04:05.000Z07:00"

var exportHeader = []string{"ID", "Timestamp", "Description", "Amount", "Quality"}

// ExportCSV 将交易历史导出为 CSV 文本，最新的交易排在最前。
func ExportCSV(transactions []Transaction) ([]byte, error) {
	sorted := append([]Transaction(nil), transactions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUnknown, err, "写入 CSV 表头失败")
	}
	for _, tx := range sorted {
		record := []string{
			tx.ID,
			tx.Timestamp.UTC().Format(exportTimeLayout),
			tx.Description,
			fmt.Sprintf("%.2f", tx.Amount),
			string(tx.Quality),
		}
		if err := w.Write(record); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeUnknown, err, "写入 CSV 记录失败")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUnknown, err, "刷新 CSV 缓冲失败")
	}
	return buf.Bytes(), nil
}

// ParseCSV 解析 ExportCSV 生成的文本，重建交易列表（保持文件内顺序）。
func ParseCSV(r io.Reader) ([]Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(exportHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "读取 CSV 表头失败")
	}
	if strings.Join(header, ",") != strings.Join(exportHeader, ",") {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("CSV 表头不匹配: %v", header))
	}

	var transactions []Transaction
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "读取 CSV 记录失败")
		}

		ts, err := time.Parse(exportTimeLayout, record[1])
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解析 CSV 时间戳失败")
		}
		amount, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解析 CSV 金额失败")
		}

		transactions = append(transactions, Transaction{
			ID:          record[0],
			Timestamp:   ts,
			Description: record[2],
			Amount:      amount,
			Quality:     Quality(record[4]),
		})
	}
	return transactions, nil
}
