// Package middleware provides HTTP middleware for actor resolution,
// request logging, metrics and panic recovery.
//
// Authentication is token based: a bearer token is exchanged for an
// actor through a TokenResolver. Requests without credentials proceed
// as the anonymous actor; individual operations decide what anonymous
// callers may do.
package middleware
