// Package pipeline provides the plugin-chain execution engine.
//
// A pipeline is an ordered list of ports.Plugin values composed into one continuation
// chain. Each plugin receives the rocket and a next function that runs the rest of the
// chain:
//
//	P1.Assemble(ctx, rocket, next1)
//	    next1 = P2.Assemble(ctx, rocket, next2)
//	        ...
//	            nextN = identity
//
// The chain is built once per plugin list (NewExecutor) and reused for every run.
// Plugins mutate the rocket, emit events, and either continue by calling next,
// short-circuit by returning without calling it, or fail. The first failure is wrapped
// in a StageError naming the plugin and propagates to the caller untouched.
//
// # Registry
//
// Registry maps a (driver, operation) pair to its prebuilt Executor. It is populated
// from the configured providers at startup and read-only afterwards:
//
//	reg, err := pipeline.BuildRegistry(providers, pipeline.WithDispatcher(dispatcher))
//	exec, err := reg.Executor("wechat", "pos.cancel")
//	rocket, err = exec.Run(ctx, rocket)
package pipeline
