// Package module resolves, fetches and evaluates zero modules.
//
// A module address is a file path or a URL. Imports name other modules
// relative to the importing one:
//
//	util#./util.0                       // file beside the importer
//	std#std.0                           // beside the importer, else on ZEROPATH
//	net#https://example.com/lib/net.0   // remote
//
// A [Resolver] discovers the imports of a module before evaluating it,
// fetching each level of the import graph concurrently, and then evaluates
// every module after the modules it imports. Circular imports are reported
// as a [lang.CircularDependency] error naming the cycle.
//
// Content is read through a [Cache], which shares concurrent reads of the
// same address and persists downloaded modules to a JSON file so that each
// URL is fetched once across runs. Call [Cache.Load] before resolving and
// [Cache.Flush] before exiting.
package module
