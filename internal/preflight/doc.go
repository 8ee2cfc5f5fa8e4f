// Package preflight provides readiness checks for the external tools and
// filesystem paths a run depends on.
//
// These checks run in two contexts:
//   - The CLI "runbox preflight" command runs RunAll and renders the results,
//     so a doomed run fails in seconds rather than mid-lifecycle.
//   - The launch path runs the cheap local subset before starting anything.
//
// Engine and image checks shell out to the container engine, so they only run
// when a runtime client is supplied.
package preflight
