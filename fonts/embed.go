package fonts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10regular"
)

// Default 是未声明字体时使用的内置字体名。
const Default = "roman"

var embedded = map[string][]byte{
	"roman":             lmroman10regular.TTF,
	"roman-bold":        lmroman10bold.TTF,
	"roman-italic":      lmroman10italic.TTF,
	"roman-bold-italic": lmroman10bolditalic.TTF,
	"sans":              lmsans10regular.TTF,
	"sans-bold":         lmsans10bold.TTF,
	"mono":              lmmono10regular.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:sans-bold" 或直接 "sans-bold"。
func Load(name string) ([]byte, error) {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "embed:")))
	if key == "" {
		key = Default
	}
	data, ok := embedded[key]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 可选 %s", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names lists the embedded font names.
func Names() []string {
	names := make([]string, 0, len(embedded))
	for name := range embedded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
