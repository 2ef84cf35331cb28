package storage

const (
	OneKB = 1 << 10 // 1,024
	OneMB = 1 << 20 // 1,048,576
	OneGB = 1 << 30 // 1,073,741,824

	SegmentSize = 1 * OneGB // 1,073,741,824 bytes per segment file
	PageSize    = 8 * OneKB // 8,192 bytes, matches bufferpool.PageSize
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)
