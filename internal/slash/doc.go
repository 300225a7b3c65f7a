// Package slash builds, registers and dispatches application commands.
//
// Commands are declared with plain structs (Module, Group, Command, Param) and
// compiled once per scope into an immutable Tree. Compilation checks the tree
// shape, each handler's signature and every parameter's option type, and fails
// the whole scope on the first violation.
//
// # Lifecycle
//
//  1. Register modules on an Extension, globally or for specific guilds
//  2. Call Sync (usually from the Ready event) to compile each scope, submit
//     it as one bulk overwrite and bind the returned ids onto the tree
//  3. Feed application command interactions to HandleInteraction or Dispatch
//
// Example:
//
//	ext := slash.New(platform, slash.Config{})
//	ext.Register(&slash.Module{
//	    Commands: []slash.Command{{
//	        Name:        "ping",
//	        Description: "replies pong",
//	        Handler: func(c *slash.Context) error {
//	            return c.Respond("pong")
//	        },
//	    }},
//	})
//	if err := ext.Sync(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Handlers
//
// A handler is a func taking *Context followed by one argument per Param and
// returning error. When the module or group has a Factory, the handler may also
// take the factory's value first, which makes method expressions such as
// (*Owner).Run usable. The value is built fresh for every invocation and may
// implement BeforeExecutor and AfterExecutor.
//
// # Errors
//
// Dispatch never returns errors to the transport. Outcomes are published to
// the OnExecuted and OnErrored streams; failures carry a *DispatchError whose
// Kind is one of the Err* sentinels.
package slash
