package utils

import "strconv"

// ParseUint64 解析 token balance 中的十进制金额字符串，非法输入返回 0
func ParseUint64(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatUint64 金额统一以十进制字符串输出，避免下游精度丢失
func FormatUint64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
