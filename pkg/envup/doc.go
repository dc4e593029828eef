// Package envup provides a Go SDK for executing provisioning plans
// programmatically.
//
// This package allows applications to load, validate, and run provisioning
// plans without shelling out to the envup CLI binary. It is useful for
// scripting, automation, and building tools on top of envup.
//
// # Quick Start
//
// Create a client, load a plan from disk, and run it:
//
//	client, err := envup.New(ctx, envup.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	plan, err := client.LoadPlan(ctx, "envup.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := client.Run(ctx, plan, nil)
//
// Plans can also be built in code:
//
//	plan := envup.Plan{
//	    Name: "bootstrap",
//	    Phases: []envup.Phase{
//	        {Name: "deps", Tasks: []envup.Task{
//	            {Name: "install", Command: "npm ci"},
//	        }},
//	    },
//	}
//
// # Progress
//
// Pass a progress callback through [RunOpts] to observe phase and task
// lifecycle events as they happen:
//
//	client.Run(ctx, plan, &envup.RunOpts{
//	    OnProgress: func(phase, message string, level envup.Level) {
//	        fmt.Printf("[%s] %s\n", phase, message)
//	    },
//	})
//
// # History
//
// Every run is persisted. Query past runs and their task outcomes:
//
//	runs, _ := client.ListRuns(ctx)
//	latest, tasks, _ := client.GetRun(ctx, "")
//
// For unit tests, set [Config].InMemory to skip the SQLite database entirely.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Run does not exist.
//   - [ErrNotValid]: Plan or request is invalid.
//   - [ErrRequiredTask]: A required task did not succeed.
//   - [ErrRunTimeout]: The plan's global deadline expired.
//   - [ErrRunCancelled]: The run was cancelled from outside.
//
// The returned [Report] is non-nil even for failed runs, so partial results
// can always be inspected.
package envup
