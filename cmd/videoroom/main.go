// videoroom serves a browser video-call UI.
//
// Configuration comes from VIDEOROOM_* environment variables; a few flags
// override them.
//
// Usage:
//
//	videoroom [options]
//
// Options:
//
//	-listen      HTTP listen address (default: :8080)
//	-variant     UI variant, call or room (default: call)
//	-sdk         SDK engine, loopback or pion (default: loopback)
//	-demo-peers  Simulated participants per loopback channel (default: 0)
//	-demo-churn  Camera toggle interval of demo peers (default: off)
//	-browse      List videoroom services on the LAN and exit
//
// Example:
//
//	VIDEOROOM_APP_ID=dev videoroom -variant room -demo-peers 2
package main

import (
	"log"

	"github.com/backkem/videoroom/examples/common"
	"github.com/backkem/videoroom/pkg/config"
	"github.com/pion/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	opts := common.ParseFlags(cfg)

	if opts.Browse {
		if err := common.RunBrowse(); err != nil {
			log.Fatalf("Browse failed: %v", err)
		}
		return
	}

	stack, err := common.NewStack(cfg, opts, logging.NewDefaultLoggerFactory())
	if err != nil {
		log.Fatalf("Failed to configure videoroom: %v", err)
	}

	// Blocks until interrupted
	if err := common.RunServer(stack); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
