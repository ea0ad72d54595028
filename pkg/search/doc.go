// Package search feeds published catalog entities to the search index.
//
// The service does not execute search queries itself. Entities becoming
// publicly visible are serialized and pushed onto a Redis queue; a separate
// consumer owns index propagation. The queue survives consumer restarts and
// absorbs bursts of review activity.
package search
