// Package timeutc flags time.Now() calls that are not immediately converted
// with .UTC(). Task due dates, reminder triggers, envelope timestamps, and
// every stored row in this platform are UTC; a naked time.Now() leaks the
// host timezone into comparisons and serialized output.
package timeutc

import (
	"go/ast"
	"strings"

	"golang.org/x/tools/go/analysis"
)

const message = "time.Now() should be followed by .UTC() for timezone consistency"

// Analyzer reports time.Now() calls without a .UTC() conversion.
var Analyzer = &analysis.Analyzer{
	Name: "timeutc",
	Doc:  "checks for time.Now() calls without .UTC() to ensure timezone consistency",
	Run:  run,
}

func run(pass *analysis.Pass) (any, error) {
	for _, file := range pass.Files {
		converted := make(map[*ast.CallExpr]bool)

		// Collect the time.Now() calls that sit under a .UTC() selector, so
		// time.Now().UTC() and longer chains are not flagged.
		ast.Inspect(file, func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if !ok || sel.Sel.Name != "UTC" {
				return true
			}
			if call, ok := sel.X.(*ast.CallExpr); ok && isTimeNow(call) {
				converted[call] = true
			}
			return true
		})

		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok || !isTimeNow(call) || converted[call] {
				return true
			}
			if suppressed(pass, file, call) {
				return true
			}
			pass.Reportf(call.Pos(), message)
			return true
		})
	}
	return nil, nil
}

// isTimeNow matches a call of the form time.Now(). This is a syntactic check;
// a local package named time shadowing the standard library would also match,
// which nothing in this repo does.
func isTimeNow(call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Now" {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	return ok && ident.Name == "time"
}

// suppressed honors //nolint and //nolint:timeutc comments on the call's
// line or the line above it.
func suppressed(pass *analysis.Pass, file *ast.File, call *ast.CallExpr) bool {
	line := pass.Fset.Position(call.Pos()).Line
	for _, cg := range file.Comments {
		for _, comment := range cg.List {
			commentLine := pass.Fset.Position(comment.Pos()).Line
			if commentLine != line && commentLine != line-1 {
				continue
			}
			if !strings.Contains(comment.Text, "nolint") {
				continue
			}
			if !strings.Contains(comment.Text, ":") || strings.Contains(comment.Text, "timeutc") {
				return true
			}
		}
	}
	return false
}
