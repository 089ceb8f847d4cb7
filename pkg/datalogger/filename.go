package datalogger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/frame-datalogger/pkg/config"
)

// sequenceWidth 序号文件名补零宽度
const sequenceWidth = 6

// Filename 生成序号 seq 对应文件对的文件名（不含扩展名）。
// mask 为时间戳哨兵时使用远端时间戳，唯一性取决于远端时钟精度。
func Filename(mask string, seq uint64, timestamp int64) string {
	if mask == config.TimestampMask {
		return strconv.FormatInt(timestamp, 10)
	}
	return fmt.Sprintf("%s%0*d", mask, sequenceWidth, seq)
}

// ResumeSequence 返回 names 中由 mask 生成的最大序号 + 1，没有匹配时返回 0
func ResumeSequence(mask string, names []string) uint64 {
	if mask == config.TimestampMask {
		return 0
	}
	var next uint64
	for _, name := range names {
		digits, ok := strings.CutPrefix(name, mask)
		if !ok || len(digits) < sequenceWidth {
			continue
		}
		n, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return next
}
