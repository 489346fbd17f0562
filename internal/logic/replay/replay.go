// Package replay 离线回放落盘的 Yellowstone 区块，输出与线上一致的实体行。
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"google.golang.org/protobuf/proto"
	"jup-indexer-sol/internal/logic/engine"
	"jup-indexer-sol/pkg/logger"
	"jup-indexer-sol/pkg/utils"
)

// BlockFileExt 回放目录中区块文件的扩展名，内容为 proto 编码的 SubscribeUpdateBlock
const BlockFileExt = ".pb"

// Line 输出的一行 JSON
type Line struct {
	Slot   uint64      `json:"slot"`
	Entity string      `json:"entity"`
	ID     string      `json:"id"`
	Fields [][2]string `json:"fields"`
}

// Summary 回放统计
type Summary struct {
	Files  int
	Failed int
	Rows   int
	Stats  engine.Stats
}

type fileResult struct {
	path string
	res  *engine.Result
	err  error
}

// ListBlockFiles 列出目录下的区块文件，按文件名排序
func ListBlockFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+BlockFileExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadBlockFile 读取单个区块文件
func ReadBlockFile(path string) (*pb.SubscribeUpdateBlock, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var block pb.SubscribeUpdateBlock
	if err := proto.Unmarshal(raw, &block); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &block, nil
}

// Run 并发处理 files，按文件顺序将实体行以 JSON Lines 写入 w。
// 单个文件失败只记日志并计数，不影响其它文件。
func Run(files []string, workers int, w io.Writer) (Summary, error) {
	results := utils.ParallelMap(files, workers, func(path string) fileResult {
		block, err := ReadBlockFile(path)
		if err != nil {
			return fileResult{path: path, err: err}
		}
		res, err := engine.ProcessBlock(block)
		return fileResult{path: path, res: res, err: err}
	})

	sum := Summary{Files: len(files)}
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range results {
		if r.err != nil {
			sum.Failed++
			logger.Errorf("[Replay] %s: %v", r.path, r.err)
			continue
		}
		addStats(&sum.Stats, r.res.Stats)
		for _, row := range r.res.Changes.Rows {
			line := Line{Slot: r.res.Changes.Slot, Entity: string(row.Entity), ID: row.ID}
			line.Fields = make([][2]string, 0, len(row.Fields))
			for _, f := range row.Fields {
				line.Fields = append(line.Fields, [2]string{f.Name, f.Value})
			}
			if err := enc.Encode(&line); err != nil {
				return sum, err
			}
			sum.Rows++
		}
	}
	return sum, bw.Flush()
}

func addStats(dst *engine.Stats, s engine.Stats) {
	dst.Txs += s.Txs
	dst.JupiterTxs += s.JupiterTxs
	dst.VoteTxs += s.VoteTxs
	dst.FailedTxs += s.FailedTxs
	dst.VersionedTxs += s.VersionedTxs
	dst.MalformedTxs += s.MalformedTxs
	dst.PanickedTxs += s.PanickedTxs
	dst.MalformedIxs += s.MalformedIxs
	dst.UnrecognizedIxs += s.UnrecognizedIxs
	dst.Swaps += s.Swaps
}
