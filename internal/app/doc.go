// Package app wires a lasr run: configuration, logging, stage definitions,
// the engine transport and the executor. It loads a pipeline file and either
// inspects it or runs it over input files, independent of the entrypoint
// that filled in the Config.
package app
