//go:build !unix

package main

import "github.com/momentics/hioload-chat/server"

func watchDump(*server.Server) func() { return func() {} }
