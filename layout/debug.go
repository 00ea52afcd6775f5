package layout

import (
	"encoding/json"
	"io"
	"os"
)

// WriteDebug 将布局结果以缩进 JSON 写入 w。
func WriteDebug(res *Result, w io.Writer) error {
	if res == nil {
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteDebugJSON 将布局结果输出为 JSON 文件，便于调试或可视化。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteDebug(res, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
