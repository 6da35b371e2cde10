// Package link maintains a resilient long-lived client connection to a
// single remote endpoint.
//
// Two cooperating tasks run for the life of the process. The Prober
// tests reachability with cheap bounded probes whenever no connection
// exists, backing off exponentially between failures. The Supervisor
// waits for a positive probe, runs a bounded cycle of connect attempts,
// then drives the session loop (service, receive, heartbeat) until the
// connection dies, drains briefly and starts over.
//
// The tasks share nothing but a SharedState record: three booleans
// behind one mutex with two condition variables. The connection handle
// never leaves the supervisor's stack.
//
// Typical use:
//
//	tr, err := transport.NewTCP(transport.Config{})
//	if err != nil {
//		return err
//	}
//	mgr, err := link.NewManager(link.Config{
//		Endpoint:  "uplink.example.net:9470",
//		Transport: tr,
//	})
//	if err != nil {
//		return err
//	}
//	go handleSignals(mgr.RequestShutdown)
//	return mgr.Start() // blocks until shutdown completes
package link
