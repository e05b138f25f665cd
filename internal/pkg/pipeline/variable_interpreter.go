package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// VariableRegex matches ${{ ... }} expressions
var VariableRegex = regexp.MustCompile(`\$\{\{\s*(.+?)\s*\}\}`)

// NeedResult is what a stage exposes to its dependents as needs.<stage>
type NeedResult struct {
	Result  string            `expr:"result"`
	Outputs map[string]string `expr:"outputs"`
}

// ExprContext is the data expressions are evaluated against
type ExprContext struct {
	Event       string
	Branch      string
	SHA         string
	Environment string
	RunID       string
	Inputs      map[string]string
	Needs       map[string]NeedResult
	Env         map[string]string
	Secrets     map[string]string

	// status function inputs, only meaningful for if conditions
	DirectNeedsSucceeded bool
	AncestorFailed       bool
	Cancelled            bool
}

func (c *ExprContext) env() map[string]any {
	needs := make(map[string]any, len(c.Needs))
	for name, n := range c.Needs {
		outputs := n.Outputs
		if outputs == nil {
			outputs = map[string]string{}
		}
		needs[name] = map[string]any{"result": n.Result, "outputs": outputs}
	}
	return map[string]any{
		"event":       c.Event,
		"branch":      c.Branch,
		"sha":         c.SHA,
		"environment": c.Environment,
		"run_id":      c.RunID,
		"inputs":      orEmpty(c.Inputs),
		"needs":       needs,
		"env":         orEmpty(c.Env),
		"secrets":     orEmpty(c.Secrets),
	}
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// status functions, bound to a context at evaluation time
func statusFunctions(c *ExprContext) []expr.Option {
	success := !c.Cancelled && !c.AncestorFailed && c.DirectNeedsSucceeded
	return []expr.Option{
		expr.Function("success", func(...any) (any, error) { return success, nil }, new(func() bool)),
		expr.Function("failure", func(...any) (any, error) { return c.AncestorFailed, nil }, new(func() bool)),
		expr.Function("always", func(...any) (any, error) { return true, nil }, new(func() bool)),
		expr.Function("cancelled", func(...any) (any, error) { return c.Cancelled, nil }, new(func() bool)),
	}
}

var statusFunctionNames = map[string]bool{"success": true, "failure": true, "always": true, "cancelled": true}

// statusCallFinder records whether the walked tree calls a status function
type statusCallFinder struct {
	found bool
}

func (f *statusCallFinder) Visit(node *ast.Node) {
	call, ok := (*node).(*ast.CallNode)
	if !ok {
		return
	}
	if ident, ok := call.Callee.(*ast.IdentifierNode); ok && statusFunctionNames[ident.Value] {
		f.found = true
	}
}

// usesStatusFunction reports whether a condition calls one of the status
// functions; conditions that do not are implicitly combined with success().
// String literals such as 'success()' are not calls.
func usesStatusFunction(cond string) bool {
	tree, err := parser.Parse(cond)
	if err != nil {
		return false
	}
	f := &statusCallFinder{}
	ast.Walk(&tree.Node, f)
	return f.found
}

// CompileCondition checks that an if expression is a valid boolean expression.
func CompileCondition(cond string) error {
	_, err := compileCondition(unwrap(cond), &ExprContext{})
	return err
}

func compileCondition(cond string, c *ExprContext) (*vm.Program, error) {
	if cond == "" {
		cond = "success()"
	}
	opts := append([]expr.Option{expr.Env(c.env()), expr.AsBool(), expr.AllowUndefinedVariables()}, statusFunctions(c)...)
	program, err := expr.Compile(cond, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile condition '%s': %w", cond, err)
	}
	return program, nil
}

// EvaluateCondition decides whether a stage runs. An empty condition means
// success(); a condition without any status function is evaluated as
// success() && (cond).
func EvaluateCondition(cond string, c *ExprContext) (bool, error) {
	cond = unwrap(cond)
	if cond != "" && !usesStatusFunction(cond) {
		cond = "success() && (" + cond + ")"
	}
	program, err := compileCondition(cond, c)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, c.env())
	if err != nil {
		return false, fmt.Errorf("evaluate condition '%s': %w", cond, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

func unwrap(cond string) string {
	cond = strings.TrimSpace(cond)
	if m := VariableRegex.FindStringSubmatch(cond); m != nil && m[0] == cond {
		return strings.TrimSpace(m[1])
	}
	return cond
}

// VariableInterpreter resolves ${{ ... }} expressions in step fields
type VariableInterpreter struct {
	ctx *ExprContext
	env map[string]any
}

func NewVariableInterpreter(ctx *ExprContext) *VariableInterpreter {
	if ctx == nil {
		ctx = &ExprContext{}
	}
	return &VariableInterpreter{ctx: ctx, env: ctx.env()}
}

// Evaluate evaluates an expression and returns its value
func (vi *VariableInterpreter) Evaluate(exprStr string) (any, error) {
	exprStr = strings.TrimSpace(exprStr)
	if exprStr == "" {
		return "", nil
	}
	opts := append([]expr.Option{expr.Env(vi.env)}, statusFunctions(vi.ctx)...)
	program, err := expr.Compile(exprStr, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile expression '%s': %w", exprStr, err)
	}
	result, err := expr.Run(program, vi.env)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression '%s': %w", exprStr, err)
	}
	return result, nil
}

// Resolve replaces every ${{ ... }} in text with its value. A nil value
// renders as the empty string.
func (vi *VariableInterpreter) Resolve(text string) (string, error) {
	if !strings.Contains(text, "${{") {
		return text, nil
	}
	var firstErr error
	out := VariableRegex.ReplaceAllStringFunc(text, func(match string) string {
		if firstErr != nil {
			return match
		}
		sub := VariableRegex.FindStringSubmatch(match)
		value, err := vi.Evaluate(sub[1])
		if err != nil {
			firstErr = err
			return match
		}
		if value == nil {
			return ""
		}
		return fmt.Sprintf("%v", value)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// ResolveMap resolves every value of m into a new map
func (vi *VariableInterpreter) ResolveMap(m map[string]string) (map[string]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	resolved := make(map[string]string, len(m))
	for k, v := range m {
		r, err := vi.Resolve(v)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", k, err)
		}
		resolved[k] = r
	}
	return resolved, nil
}

// secretRefRegex finds secrets.NAME and secrets["NAME"] references
var secretRefRegex = regexp.MustCompile(`secrets(?:\.([A-Za-z_][A-Za-z0-9_]*)|\[\s*["']([^"']+)["']\s*\])`)

// SecretReferences returns the secret names referenced inside ${{ }} in text
func SecretReferences(text string) []string {
	var names []string
	for _, m := range VariableRegex.FindAllStringSubmatch(text, -1) {
		for _, ref := range secretRefRegex.FindAllStringSubmatch(m[1], -1) {
			if ref[1] != "" {
				names = append(names, ref[1])
			} else {
				names = append(names, ref[2])
			}
		}
	}
	return names
}
