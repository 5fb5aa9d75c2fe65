// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

/*
Package supervisor runs Earmark's long-lived services under a suture v4
supervision tree.

	earmark
	├── data-layer
	│   └── db-checkpoint
	├── messaging-layer
	│   ├── websocket-hub
	│   ├── event-bus (if events.enabled)
	│   └── detection-scheduler (if detection.schedule is set)
	└── api-layer
	    └── http-server

Each layer restarts its children independently with suture's backoff, so a
broker outage that crashes the event bus never interrupts the API.
Supervisor events are logged through sutureslog.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewCheckpointService(db, 0))
	tree.AddMessagingService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, 0))
	return tree.Serve(ctx)

Service adapters live in the services subpackage.
*/
package supervisor
