// Package config defines the format-agnostic descriptor model, along with the
// Loader interface that reads descriptors from disk and evaluates them into
// env.Node trees.
//
// Resolve is the single entry point used by the application: it loads the
// descriptor pair of a directory for a stage, follows the parent chain and
// returns a freshly built tree together with every file that contributed to
// it. The concrete HCL implementation lives in the hcl package.
package config
