// Package compiler turns authored contracts into the definition format
// the controller deploys.
//
// Two source forms are supported:
//
//	CUE documents   contract: {and: [{one: {}}, {give: {one: {}}}]}
//	Prefix notation and one give one
//
// Both produce an *Expr, which Validate checks and Definition encodes.
// Decompile goes the other way for display.
package compiler
