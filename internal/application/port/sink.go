package port

import "time"

// Sink 终端输出
type Sink interface {
	// WriteLive 覆盖当前行（不换行）
	WriteLive(line string) error
	// WriteSnapshot 追加一行带时间戳的历史记录
	WriteSnapshot(ts time.Time, line string) error
	// WriteBlock 多行输出（机会列表）
	WriteBlock(lines []string) error
	NewLine() error
}
