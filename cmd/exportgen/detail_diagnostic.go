//go:build diagnostic

package main

// diagnosticBuild makes every error print its full cause chain.
const diagnosticBuild = true
