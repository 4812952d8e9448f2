// Package script runs setup and teardown hooks.
//
// Scripts are evaluated with expr-lang/expr, one expression per line. Each
// expression sees the hook context (url, method, headers, body before the
// request; status_code, response, response_json after it), a read-only
// vars snapshot and these functions:
//
//	getVar(name)            read a run variable
//	setVar(name, value)     write a run variable
//	unsetVar(name)          remove a run variable
//	setField(name, value)   replace a hook context value (e.g. sign a request)
//	log(args...)            append a line to the hook output
//
// plus the helpers of package builtin. A script cannot reach anything else.
// Execution is bounded by a timeout; a timed-out script can no longer write.
package script
