// Package resource provides the handle table that maps caller-assigned
// integer handles to live socket clients.
//
// Unlike an allocator, the table never picks handles itself: the caller
// names every entry and is responsible for not reusing a handle while its
// entry is alive. The table only guarantees that at most one entry exists
// per handle.
//
// # Handle Table
//
//	table := resource.NewTable[*socket.Client]()
//
//	// Insert only if the handle is free
//	if !table.InsertIfAbsent(7, client) {
//	    // handle 7 is already taken, nothing was changed
//	}
//
//	// Retrieve value by handle
//	client, ok := table.Get(7)
//
//	// Remove and get value
//	client, ok = table.Remove(7)
//
// All methods are safe for concurrent use. Each method is atomic with
// respect to the handle it touches, which is what lets the dispatcher run
// tasks for different handles on different workers.
//
// # Observers
//
// Register observers to track entry lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc[*socket.Client](func(e resource.Event[*socket.Client]) {
//	    switch e.Type {
//	    case resource.EventCreated:
//	        clients.Inc()
//	    case resource.EventDropped:
//	        clients.Dec()
//	    }
//	}))
//
// Observers run synchronously on the goroutine that mutated the table and
// must not call back into it.
//
// # Shutdown
//
// Values are not closed by the table. The owner must release each value
// before calling Remove. After Close the table rejects inserts but keeps
// its live entries, so the owner can still walk them with Each.
package resource
