// Package nointerface flags empty interface{} types and suggests the 'any'
// alias, with an automatic fix applicable via -fix. The repo writes 'any'
// throughout (handler DTOs, hub frames, response helpers); this keeps new
// code from drifting back.
package nointerface

import (
	"go/ast"
	"strings"

	"golang.org/x/tools/go/analysis"
)

const message = "use 'any' instead of 'interface{}' (available since Go 1.18)"

// Analyzer reports empty interface{} types and offers the 'any' rewrite.
var Analyzer = &analysis.Analyzer{
	Name: "nointerface",
	Doc:  "checks for interface{} usage and suggests using 'any' (available since Go 1.18)",
	Run:  run,
}

func run(pass *analysis.Pass) (any, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			iface, ok := n.(*ast.InterfaceType)
			if !ok {
				return true
			}
			// Interfaces with methods or embedded types are real contracts,
			// not candidates for 'any'.
			if iface.Methods != nil && len(iface.Methods.List) > 0 {
				return true
			}
			if suppressed(pass, file, iface) {
				return true
			}

			pass.Report(analysis.Diagnostic{
				Pos:     iface.Pos(),
				End:     iface.End(),
				Message: message,
				SuggestedFixes: []analysis.SuggestedFix{{
					Message: "Replace 'interface{}' with 'any'",
					TextEdits: []analysis.TextEdit{{
						Pos:     iface.Pos(),
						End:     iface.End(),
						NewText: []byte("any"),
					}},
				}},
			})
			return true
		})
	}
	return nil, nil
}

// suppressed honors //nolint and //nolint:nointerface comments on the node's
// line or the line above it.
func suppressed(pass *analysis.Pass, file *ast.File, node ast.Node) bool {
	line := pass.Fset.Position(node.Pos()).Line
	for _, cg := range file.Comments {
		for _, comment := range cg.List {
			commentLine := pass.Fset.Position(comment.Pos()).Line
			if commentLine != line && commentLine != line-1 {
				continue
			}
			if !strings.Contains(comment.Text, "nolint") {
				continue
			}
			if !strings.Contains(comment.Text, ":") || strings.Contains(comment.Text, "nointerface") {
				return true
			}
		}
	}
	return false
}
