// Package views holds the embedded HTML templates of the storefront.
package views

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

//go:embed templates
var templates embed.FS

// Layout wraps every page.
const Layout = "layouts/main"

// New returns the template engine over the embedded templates.
func New() *html.Engine {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFuncMap(map[string]interface{}{
		"money":    Money,
		"contains": contains,
		"seq":      seq,
		"join":     strings.Join,
		"inc":      func(n int) int { return n + 1 },
		"dec":      func(n int) int { return n - 1 },
		"dict":     dict,
	})
	return engine
}

// Money formats a price or total with two decimals.
func Money(v interface{}) string {
	switch amount := v.(type) {
	case decimal.Decimal:
		return amount.StringFixed(2)
	case *decimal.Decimal:
		return amount.StringFixed(2)
	default:
		return decimal.NewFromFloat(cast.ToFloat64(v)).StringFixed(2)
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func dict(pairs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[cast.ToString(pairs[i])] = pairs[i+1]
	}
	return m
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
