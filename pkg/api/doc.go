// Package api assembles the HTTP surface: router, middleware chain and
// the per-domain handler registrations. Handlers live next to their
// domain packages; this package only composes them.
package api
