// Package preflight provides readiness checks for the external tools and
// filesystem paths slyce depends on.
//
// "slyce process" runs RunAll before creating a run and refuses to start when
// a check fails. "slyce deps" prints the same results along with the system
// dependency table from CheckSystemDeps.
package preflight
