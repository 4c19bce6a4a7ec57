// Package main hosts the uploader CLI entrypoint and command graph.
//
// Running the bare command starts the kiosk: camera import, upload sweeps
// and the status display. The subcommands are maintenance and diagnostic
// tools that either talk to the running kiosk over its unix socket or
// operate directly on the files in the working directory.
package main
