package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ByLCY/quire/container"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
	canvasrenderer "github.com/ByLCY/quire/renderer/canvas"
)

func newRenderCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <file.quire>",
		Short: "Render a scene file to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("out")
			debugPath, _ := cmd.Flags().GetString("debug")
			rawUnits, _ := cmd.Flags().GetBool("debug-raw-units")
			dataJSON, _ := cmd.Flags().GetString("data")
			return a.render(cmd, args[0], output, debugPath, rawUnits, dataJSON)
		},
	}
	cmd.Flags().StringP("out", "o", "output/out.pdf", "PDF 输出路径")
	cmd.Flags().String("debug", "", "布局调试 JSON 输出路径")
	cmd.Flags().Bool("debug-raw-units", false, "在调试 JSON 中输出 debug.rawUnits 影子字段")
	cmd.Flags().String("data", "", "绑定到 DSL 的 JSON 数据")
	return cmd
}

// render 串联解析、数据绑定、布局与编码。
func (a *app) render(cmd *cobra.Command, inputPath, outputPath, debugPath string, rawUnits bool, dataJSON string) error {
	var data any
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			return fmt.Errorf("解析 data JSON 失败: %w", err)
		}
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("无法打开 DSL 文件 %s: %w", inputPath, err)
	}
	defer file.Close()

	doc, err := dsl.ParseNamed(inputPath, file)
	if err != nil {
		return fmt.Errorf("解析 DSL 失败: %w", err)
	}

	baseDir := a.cfg.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(inputPath)
	}
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		BaseDir:        baseDir,
		ImageCacheSize: a.cfg.Images.CacheSize,
		Logger:         a.log(),
	})
	c := container.New(
		container.WithLogger(a.log()),
		container.WithBaseDir(baseDir),
		container.WithEncoder(r),
		container.WithLayouter(layout.NewEngine(r, layout.WithBaseDir(baseDir), layout.WithLogger(a.log()))),
	)
	if err := c.Update(doc, data); err != nil {
		return err
	}

	req := layout.Request{
		PageSize:    a.cfg.Page.Size,
		Orientation: a.cfg.Page.Orientation,
		Debug:       layout.DebugOptions{RawUnits: rawUnits},
	}
	pdfBytes, err := c.ToBuffer(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}

	if debugPath != "" {
		if err := writeDebug(c.LayoutData(), debugPath); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(outputPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "已生成 PDF：%s\n", outputPath)
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
