// Package lang implements the zero expression language: its lexical rules
// and recursive grammar (built on package grammar), syntax tree, values,
// scopes and tree-walking evaluator.
//
// # Syntax
//
// A module is a sequence of imports, declarations and an optional body:
//
//	util#./util.0           // import: bind util to the value of ./util.0
//	base = 10               // declaration
//	square = x => x * x     // lambda
//	square(base) + util.n   // body
//
// Expressions combine, from lowest to highest precedence, logical & and |,
// the conditional c ? a : b, relational >= <= == != > <, additive + -,
// multiplicative * /, and unary ! (not), $ (probe) and lambdas. Postfix
// operations attach without intervening whitespace: x[i], x[i:j], x[.]
// (length), x[*] (keys), x.name and f(arg).
//
// Lambdas take a single parameter or destructure a record or list:
//
//	x => x + 1
//	{a b} => a * b
//	n => | n < 0 = "negative" | n == 0 = "zero" | "positive"
//
// Atoms are integers, "texts", null, identifiers, lists [a, ...xs], records
// {key: v, shorthand, ...spread}, parenthesized expressions with local
// declarations (a = 1 b = 2 a + b), module addresses (./m.0, name.0,
// https://host/m.0) and load directives (@./file.txt).
//
// # Values
//
// Values are float64 numbers, strings, nil (null), [Undefined], []any
// lists, [*Record] and [*Closure]. The number 0 is false and every other
// value is true.
//
// # Errors
//
// [ParseProgram] reports a [*SyntaxError] at the furthest position the
// grammar reached. Evaluation reports a [*SemanticError] whose frames trace
// the failure through function calls and module references; [Report]
// renders either kind for display.
package lang
