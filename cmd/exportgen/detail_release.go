//go:build !diagnostic

package main

const diagnosticBuild = false
