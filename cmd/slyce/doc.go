// Package main hosts the slyce CLI entrypoint and command graph.
//
// The Cobra command tree plans tiles for a video, runs the tiling pipeline,
// lists and inspects recorded runs, exports their artifacts and checks the
// external tools the pipeline shells out to. Configuration resolution,
// logger setup and registry access are centralized in commandContext so
// subcommands stay declarative.
package main
